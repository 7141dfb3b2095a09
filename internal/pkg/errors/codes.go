package errors

import (
	"fmt"
	"net/http"
)

// Code represents an error code with HTTP status and message
type Code struct {
	Code    int    // Business error code
	Status  int    // HTTP status code
	Message string // Error message
}

// Error codes for different modules
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidArgument = 1001
	ErrNotFound        = 1002
	ErrUnauthorized    = 1003
	ErrForbidden       = 1004
	ErrConflict        = 1005
	ErrExternalService = 1006

	// Auth errors (2000-2999)
	ErrAuthInvalidCredentials = 2000
	ErrAuthEmailExists        = 2001
	ErrAuthInvalidToken       = 2002

	// Folder errors (3000-3999)
	ErrFolderNotFound      = 3000
	ErrBinNotFound         = 3001
	ErrFolderCycle         = 3002
	ErrMoveIntoDescendant  = 3003
	ErrEmptyBatch          = 3004
	ErrDestinationNotFound = 3005

	// File errors (4000-4999)
	ErrFileNotFound = 4000

	// Hash ledger errors (5000-5999)
	ErrHashNotFound = 5000
	ErrHashConflict = 5001
	ErrBlobGateway  = 5002

	// Link errors (6000-6999)
	ErrLinkNotFound  = 6000
	ErrLinkExpired   = 6001
	ErrLinkForbidden = 6002
)

var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidArgument: {ErrInvalidArgument, http.StatusBadRequest, "Invalid argument"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrUnauthorized:    {ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	ErrForbidden:       {ErrForbidden, http.StatusForbidden, "Forbidden"},
	ErrConflict:        {ErrConflict, http.StatusConflict, "Resource conflict"},
	ErrExternalService: {ErrExternalService, http.StatusBadGateway, "External service error"},

	ErrAuthInvalidCredentials: {ErrAuthInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
	ErrAuthEmailExists:        {ErrAuthEmailExists, http.StatusConflict, "Email already exists"},
	ErrAuthInvalidToken:       {ErrAuthInvalidToken, http.StatusUnauthorized, "Invalid or expired token"},

	ErrFolderNotFound:      {ErrFolderNotFound, http.StatusNotFound, "Folder not found"},
	ErrBinNotFound:         {ErrBinNotFound, http.StatusInternalServerError, "Bin folder not found"},
	ErrFolderCycle:         {ErrFolderCycle, http.StatusInternalServerError, "Folder ancestry is corrupted"},
	ErrMoveIntoDescendant:  {ErrMoveIntoDescendant, http.StatusBadRequest, "Cannot move a folder into its own subtree"},
	ErrEmptyBatch:          {ErrEmptyBatch, http.StatusBadRequest, "Batch must not be empty"},
	ErrDestinationNotFound: {ErrDestinationNotFound, http.StatusBadRequest, "Destination folder not found"},

	ErrFileNotFound: {ErrFileNotFound, http.StatusNotFound, "File not found"},

	ErrHashNotFound: {ErrHashNotFound, http.StatusNotFound, "Content hash not found"},
	ErrHashConflict: {ErrHashConflict, http.StatusConflict, "Content hash already registered"},
	ErrBlobGateway:  {ErrBlobGateway, http.StatusBadGateway, "Blob storage gateway error"},

	ErrLinkNotFound:  {ErrLinkNotFound, http.StatusNotFound, "Link not found"},
	ErrLinkExpired:   {ErrLinkExpired, http.StatusForbidden, "Link expired"},
	ErrLinkForbidden: {ErrLinkForbidden, http.StatusForbidden, "Link requires authentication"},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns HTTP status for a given error code
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
