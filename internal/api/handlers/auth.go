package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"tuyabridge/internal/tuya"
	"tuyabridge/internal/tuya/auth"
	"tuyabridge/internal/tuya/sharing"

	"github.com/gin-gonic/gin"
)

// Linker issues QR codes and waits for the scan. Only the sharing protocol
// supports it; signed-protocol deployments pass nil.
type Linker interface {
	IssueQRCode(ctx context.Context, userCode string) (*sharing.QRCode, error)
	WaitForLink(ctx context.Context, qr *sharing.QRCode, interval, timeout time.Duration) (*tuya.TokenSet, error)
}

// AuthHandler exposes credential status and QR-code linking
type AuthHandler struct {
	manager  *auth.Manager
	linker   Linker
	userCode string
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(manager *auth.Manager, linker Linker, userCode string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		manager:  manager,
		linker:   linker,
		userCode: userCode,
		logger:   logger,
	}
}

// GetStatus reports the credential lifecycle state
// GET /auth/status
func (h *AuthHandler) GetStatus(c *gin.Context) {
	response := gin.H{
		"state": h.manager.State().String(),
		"valid": h.manager.IsValid(),
	}
	if tokens := h.manager.Current(); tokens != nil {
		response["uid"] = tokens.UID
		response["expires_in_seconds"] = int(tokens.ExpiresIn().Seconds())
		response["can_refresh"] = tokens.CanRefresh()
	}
	c.JSON(http.StatusOK, response)
}

// StartLink issues a QR code and waits for the scan in the background. The
// response carries the payload to render; poll GET /auth/status for the
// outcome.
// POST /auth/link
func (h *AuthHandler) StartLink(c *gin.Context) {
	if h.linker == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "QR linking is only available for sharing-protocol accounts",
			"code":  "UNSUPPORTED_OPERATION",
		})
		return
	}

	qr, err := h.linker.IssueQRCode(c.Request.Context(), h.userCode)
	if err != nil {
		status, code := statusForError(err)
		h.logger.Error("Failed to issue QR code",
			"component", "api",
			"error", err,
		)
		c.JSON(status, gin.H{"error": "Failed to issue QR code", "code": code})
		return
	}

	h.manager.BeginAuthorizing()

	go func() {
		tokens, err := h.linker.WaitForLink(context.Background(), qr, sharing.DefaultPollInterval, sharing.DefaultLinkTimeout)
		if err != nil {
			h.logger.Warn("QR linking did not complete",
				"component", "api",
				"error", err,
			)
			h.manager.Invalidate()
			return
		}
		h.manager.SetTokens(tokens)
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"qr_payload":  qr.Payload(),
		"expire_time": qr.ExpireTime,
	})
}

// Refresh forces a token refresh now
// POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	tokens, err := h.manager.Refresh(c.Request.Context())
	if err != nil {
		status, code := statusForError(err)
		c.JSON(status, gin.H{"error": "Refresh failed", "code": code})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":            "Token refreshed",
		"expires_in_seconds": int(tokens.ExpiresIn().Seconds()),
	})
}
