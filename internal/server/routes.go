package server

import (
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/serial9/internal/auth"
	"github.com/danmuck/serial9/internal/protocol/serial9"
	"github.com/danmuck/serial9/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "0.1.0"

// txRequest carries either hex or text payload bytes.
type txRequest struct {
	Mode int    `json:"mode"`
	Hex  string `json:"hex"`
	Text string `json:"text"`
}

func (a *Admin) registerRoutes() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(a.startedAt).String(),
			"service": "serial9",
			"node":    a.node,
			"version": version,
		})
	})

	a.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, a.backend.Status())
	})

	write := a.router.Group("/", a.requireToken())
	write.POST("/tx", a.handleTx)
	write.POST("/baud/:rate", a.handleBaud)
	write.POST("/resync", a.handleResync)
	a.router.GET("/rx", a.handleRx)
	a.router.GET("/ws/rx", a.handleStream)
}

func (a *Admin) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.auth == nil {
			c.Next()
			return
		}
		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok || a.auth.Validate(token) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrUnauthorized.Error()})
			return
		}
		c.Next()
	}
}

func (a *Admin) handleTx(c *gin.Context) {
	var req txRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload := []byte(req.Text)
	if raw := strings.TrimSpace(req.Hex); raw != "" {
		b, err := hex.DecodeString(strings.ReplaceAll(raw, " ", ""))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hex: " + err.Error()})
			return
		}
		payload = b
	}
	if err := a.backend.Send(req.Mode, payload); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent", "mode": req.Mode, "bytes": len(payload)})
}

func (a *Admin) handleBaud(c *gin.Context) {
	rate, err := serial9.ParseRate(c.Param("rate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := a.backend.SetBaud(rate); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent", "rate": rate.Baud(), "code": rate.Code()})
}

func (a *Admin) handleResync(c *gin.Context) {
	if err := a.backend.Resync(); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resynced", "state": a.backend.Status().State})
}

func (a *Admin) handleRx(c *gin.Context) {
	values, err := a.backend.Poll()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if values == nil {
		values = []uint16{}
	}
	c.JSON(http.StatusOK, gin.H{"values": values})
}

func (a *Admin) handleStream(c *gin.Context) {
	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.logger.Warn().Err(err).Msg("server.handleStream upgrade failed")
		return
	}
	defer conn.Close()

	sub := a.backend.Subscribe(64)
	defer sub.Close()

	// The client never sends; reading only detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case batch, ok := <-sub.C:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "bridge stopped"))
				return
			}
			if err := conn.WriteJSON(batch); err != nil {
				a.logger.Debug().Err(err).Msg("server.handleStream write failed")
				return
			}
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidMode):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
