// Package services is the command layer between the user interface and the
// engine: folder and note editing, account login/logout and sharing. Every
// command can also be reported as a Result for display.
package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/codexnotes/internal/common"
)

// Result is what a command reports to the user.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func Ok(format string, args ...any) Result {
	return Result{OK: true, Message: fmt.Sprintf(format, args...)}
}

// Fail turns err into a message fit for the user.
func Fail(err error) Result {
	var ve *common.ValidationError
	switch {
	case errors.As(err, &ve):
		return Result{Message: ve.Error()}
	case errors.Is(err, common.ErrUnauthorized):
		return Result{Message: "session expired, please log in again"}
	case errors.Is(err, common.ErrForbidden):
		return Result{Message: "you do not have access to this folder"}
	case errors.Is(err, common.ErrTransport):
		return Result{Message: "server is unreachable, changes are kept locally"}
	case errors.Is(err, common.ErrNotFound):
		return Result{Message: "not found"}
	case errors.Is(err, common.ErrRootFolderImmutable):
		return Result{Message: common.ErrRootFolderImmutable.Error()}
	case errors.Is(err, common.ErrLogoutAborted):
		return Result{Message: "logout cancelled"}
	case errors.Is(err, common.ErrCancelled):
		return Result{Message: "cancelled"}
	default:
		return Result{Message: err.Error()}
	}
}

// ResultOf is Fail(err) for a non-nil err and Ok(format, args...) otherwise.
func ResultOf(err error, format string, args ...any) Result {
	if err != nil {
		return Fail(err)
	}
	return Ok(format, args...)
}
