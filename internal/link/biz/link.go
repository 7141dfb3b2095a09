// Package biz implements share links: random tokens bound to a file or a
// folder, with an absolute expiry and an audience restriction.
package biz

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	filebiz "github.com/mina-sebastian/free-space-sub000/internal/file/biz"
	folderbiz "github.com/mina-sebastian/free-space-sub000/internal/folder/biz"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/redis"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// Audience restriction for a link
const (
	CanSeeAnyone   = "ANYONE"
	CanSeeAuthOnly = "AUTH_ONLY"
)

// Target types a link can bind to
const (
	TargetFile   = "file"
	TargetFolder = "folder"
)

const (
	tokenBytes  = 16 // hex-encoded to a 32 character token
	cacheKeyfmt = "link:%s"
	qrCodeSize  = 256
	minCacheTTL = time.Second
	maxCacheTTL = 10 * time.Minute
)

// Link is a share link row
type Link struct {
	Token      string    `json:"token"`
	UserID     string    `json:"user_id"`
	FileID     *string   `json:"file_id"`
	FolderID   *string   `json:"folder_id"`
	Permission string    `json:"permission"`
	CanSee     string    `json:"can_see"`
	Expires    time.Time `json:"expires"`
	CreatedAt  time.Time `json:"created_at"`
}

// Expired reports whether the link is past its expiry
func (l *Link) Expired(now time.Time) bool {
	return now.After(l.Expires)
}

// ResolveResult is what a token resolves to after subpath descent: either
// a single file, or a folder with its direct content
type ResolveResult struct {
	Link    *Link
	File    *filebiz.File
	Folder  *folderbiz.Folder
	Folders []*folderbiz.Folder
	Files   []*filebiz.File
}

// LinkRepo is the link persistence contract
type LinkRepo interface {
	Create(ctx context.Context, link *Link) error
	GetByToken(ctx context.Context, token string) (*Link, error)
	Delete(ctx context.Context, token string) error
}

// FolderTree is the slice of the folder manager the link resolver needs
type FolderTree interface {
	Get(ctx context.Context, userID, folderID string) (*folderbiz.Folder, error)
	ListChildren(ctx context.Context, userID string, outerFolderID *string) ([]*folderbiz.Folder, error)
}

// FileManager is the slice of the file manager the link resolver needs
type FileManager interface {
	Get(ctx context.Context, userID, fileID string) (*filebiz.File, error)
	List(ctx context.Context, userID, folderID string) ([]*filebiz.File, error)
}

// LinkUseCase manages share links
type LinkUseCase struct {
	repo       LinkRepo
	tree       FolderTree
	files      FileManager
	cache      *redis.Client
	baseURL    string
	defaultTTL time.Duration
	logger     *logger.Logger
}

// NewLinkUseCase creates the link manager. baseURL is the public prefix
// the frontend serves links under.
func NewLinkUseCase(
	repo LinkRepo,
	tree FolderTree,
	files FileManager,
	cache *redis.Client,
	baseURL string,
	defaultTTL time.Duration,
	log *logger.Logger,
) *LinkUseCase {
	return &LinkUseCase{
		repo:       repo,
		tree:       tree,
		files:      files,
		cache:      cache,
		baseURL:    baseURL,
		defaultTTL: defaultTTL,
		logger:     log,
	}
}

// Generate creates a link bound to a file or folder the user owns
func (uc *LinkUseCase) Generate(
	ctx context.Context,
	userID, targetType, targetID, permission, canSee string,
	ttl time.Duration,
) (*Link, error) {
	if canSee != CanSeeAnyone && canSee != CanSeeAuthOnly {
		canSee = CanSeeAnyone
	}
	if ttl <= 0 {
		ttl = uc.defaultTTL
	}

	link := &Link{
		UserID:     userID,
		Permission: permission,
		CanSee:     canSee,
		Expires:    time.Now().Add(ttl),
		CreatedAt:  time.Now(),
	}

	switch targetType {
	case TargetFile:
		if _, err := uc.files.Get(ctx, userID, targetID); err != nil {
			return nil, ErrTargetNotFound
		}
		link.FileID = &targetID
	case TargetFolder:
		if _, err := uc.tree.Get(ctx, userID, targetID); err != nil {
			return nil, ErrTargetNotFound
		}
		link.FolderID = &targetID
	default:
		return nil, ErrInvalidTarget
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	link.Token = token

	if err := uc.repo.Create(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// Resolve looks up a token, enforces expiry and audience, and descends
// the optional subpath below a folder link. Sibling names may collide;
// the first match in name order wins.
func (uc *LinkUseCase) Resolve(ctx context.Context, token string, subPath []string, authenticated bool) (*ResolveResult, error) {
	link, err := uc.getLink(ctx, token)
	if err != nil {
		return nil, err
	}

	if link.Expired(time.Now()) {
		return nil, ErrLinkExpired
	}
	if link.CanSee == CanSeeAuthOnly && !authenticated {
		return nil, ErrLinkForbidden
	}

	// Descent runs as the link owner: the visitor borrows the owner's
	// view of the shared subtree, nothing else.
	ownerID := link.UserID

	if link.FileID != nil {
		if len(subPath) > 0 {
			return nil, ErrLinkNotFound
		}
		file, err := uc.files.Get(ctx, ownerID, *link.FileID)
		if err != nil {
			return nil, ErrLinkNotFound
		}
		return &ResolveResult{Link: link, File: file}, nil
	}

	folder, err := uc.tree.Get(ctx, ownerID, *link.FolderID)
	if err != nil {
		return nil, ErrLinkNotFound
	}

	for i, segment := range subPath {
		next, err := uc.childFolderByName(ctx, ownerID, folder.FolderID, segment)
		if err == nil {
			folder = next
			continue
		}
		// The last segment may name a file instead of a folder.
		if i == len(subPath)-1 {
			if file := uc.fileByName(ctx, ownerID, folder.FolderID, segment); file != nil {
				return &ResolveResult{Link: link, File: file}, nil
			}
		}
		return nil, ErrLinkNotFound
	}

	children, err := uc.tree.ListChildren(ctx, ownerID, &folder.FolderID)
	if err != nil {
		return nil, err
	}
	files, err := uc.files.List(ctx, ownerID, folder.FolderID)
	if err != nil {
		return nil, err
	}

	return &ResolveResult{
		Link:    link,
		Folder:  folder,
		Folders: children,
		Files:   files,
	}, nil
}

// Revoke deletes a link the user owns
func (uc *LinkUseCase) Revoke(ctx context.Context, userID, token string) error {
	link, err := uc.repo.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if link.UserID != userID {
		return ErrLinkNotFound
	}

	if err := uc.repo.Delete(ctx, token); err != nil {
		return err
	}
	uc.dropCache(ctx, token)
	return nil
}

// URL returns the public URL for a token
func (uc *LinkUseCase) URL(token string) string {
	return fmt.Sprintf("%s/links/%s", uc.baseURL, token)
}

// QR renders a PNG QR code for the link's public URL
func (uc *LinkUseCase) QR(ctx context.Context, token string) ([]byte, error) {
	if _, err := uc.getLink(ctx, token); err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(uc.URL(token), qrcode.Medium, qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}

// getLink fetches a link, trying the cache first. Cache failures fall
// through to the database.
func (uc *LinkUseCase) getLink(ctx context.Context, token string) (*Link, error) {
	key := fmt.Sprintf(cacheKeyfmt, token)

	if uc.cache != nil {
		var cached Link
		err := uc.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if err != redis.ErrCacheMiss {
			uc.logger.WithContext(ctx).Warn("link cache read failed", zap.Error(err))
		}
	}

	link, err := uc.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if ttl := cacheTTL(link, time.Now()); ttl > 0 {
			if err := uc.cache.SetJSON(ctx, key, link, ttl); err != nil {
				uc.logger.WithContext(ctx).Warn("link cache write failed", zap.Error(err))
			}
		}
	}
	return link, nil
}

func (uc *LinkUseCase) dropCache(ctx context.Context, token string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Del(ctx, fmt.Sprintf(cacheKeyfmt, token)).Err(); err != nil {
		uc.logger.WithContext(ctx).Warn("link cache invalidation failed", zap.Error(err))
	}
}

// cacheTTL clamps the cache entry to the link's remaining lifetime so an
// expired link never resolves from cache
func cacheTTL(link *Link, now time.Time) time.Duration {
	remaining := link.Expires.Sub(now)
	if remaining <= minCacheTTL {
		return 0
	}
	if remaining > maxCacheTTL {
		return maxCacheTTL
	}
	return remaining
}

func (uc *LinkUseCase) childFolderByName(ctx context.Context, userID, folderID, name string) (*folderbiz.Folder, error) {
	children, err := uc.tree.ListChildren(ctx, userID, &folderID)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		if child.Name == name {
			return child, nil
		}
	}
	return nil, folderbiz.ErrFolderNotFound
}

func (uc *LinkUseCase) fileByName(ctx context.Context, userID, folderID, name string) *filebiz.File {
	files, err := uc.files.List(ctx, userID, folderID)
	if err != nil {
		return nil
	}
	for _, f := range files {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate link token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
