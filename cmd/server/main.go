package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mina-sebastian/free-space-sub000/internal/auth"
	"github.com/mina-sebastian/free-space-sub000/internal/conf"
	"github.com/mina-sebastian/free-space-sub000/internal/data"
	filebiz "github.com/mina-sebastian/free-space-sub000/internal/file/biz"
	filedata "github.com/mina-sebastian/free-space-sub000/internal/file/data"
	fileservice "github.com/mina-sebastian/free-space-sub000/internal/file/service"
	folderbiz "github.com/mina-sebastian/free-space-sub000/internal/folder/biz"
	folderdata "github.com/mina-sebastian/free-space-sub000/internal/folder/data"
	folderservice "github.com/mina-sebastian/free-space-sub000/internal/folder/service"
	hashbiz "github.com/mina-sebastian/free-space-sub000/internal/hash/biz"
	hashdata "github.com/mina-sebastian/free-space-sub000/internal/hash/data"
	linkbiz "github.com/mina-sebastian/free-space-sub000/internal/link/biz"
	linkdata "github.com/mina-sebastian/free-space-sub000/internal/link/data"
	linkservice "github.com/mina-sebastian/free-space-sub000/internal/link/service"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"github.com/mina-sebastian/free-space-sub000/internal/server"
	uploadbiz "github.com/mina-sebastian/free-space-sub000/internal/upload/biz"
	uploadservice "github.com/mina-sebastian/free-space-sub000/internal/upload/service"
	userbiz "github.com/mina-sebastian/free-space-sub000/internal/user/biz"
	userdata "github.com/mina-sebastian/free-space-sub000/internal/user/data"
	userservice "github.com/mina-sebastian/free-space-sub000/internal/user/service"
	"go.uber.org/zap"
)

var configFile = flag.String("config", "config.yaml", "config file path")

func main() {
	flag.Parse()

	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(&config.Log)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	log.Info("config loaded successfully")

	d, cleanup, err := data.NewData(config, log)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	jwtManager := auth.NewJWTManager(config.Auth.JWTSecret, config.Auth.JWTIssuer, config.Auth.TokenTTL)

	// Repositories
	userRepo := userdata.NewUserRepo(d.DB, log)
	folderRepo := folderdata.NewFolderRepo(d.DB, log)
	fileRepo := filedata.NewFileRepo(d.DB, log)
	ledgerRepo := hashdata.NewLedgerRepo(d.DB, log)
	linkRepo := linkdata.NewLinkRepo(d.DB, log)

	// Use cases
	ledgerUC := hashbiz.NewLedgerUseCase(ledgerRepo, d.Blobs, d.DB, log)
	folderUC := folderbiz.NewFolderUseCase(folderRepo, fileRepo, linkRepo, ledgerUC, d.DB, log)
	fileUC := filebiz.NewFileUseCase(fileRepo, folderUC, ledgerUC, linkRepo, d.DB, log)
	linkUC := linkbiz.NewLinkUseCase(linkRepo, folderUC, fileUC, d.Redis, config.Link.BaseURL, config.Link.DefaultTTL, log)
	userUC := userbiz.NewUserUseCase(userRepo, folderUC, log)
	uploadUC := uploadbiz.NewUploadUseCase(ledgerUC, fileUC, folderUC, log)

	// HTTP services
	services := &server.Services{
		User:   userservice.NewUserService(userUC, jwtManager, log),
		Folder: folderservice.NewFolderService(folderUC, log),
		File:   fileservice.NewFileService(fileUC, folderUC, d.Storage, log),
		Link:   linkservice.NewLinkService(linkUC, log),
		Upload: uploadservice.NewUploadService(uploadUC, jwtManager, log),
	}

	httpServer := server.NewHTTPServer(config, jwtManager, services, log)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
