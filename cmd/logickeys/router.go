package main

import (
	"time"

	"github.com/edirooss/logickeys/internal/http/handler"
	mw "github.com/edirooss/logickeys/internal/http/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func buildRouter(log *zap.Logger, ctrl handler.Controller, isDev bool, socketTimeout time.Duration) *gin.Engine {
	if !isDev {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = zap.NewStdLog(log.Named("gin")).Writer() // Configure Gin's logger to use Zap
	r := gin.New()
	r.SetTrustedProxies(nil) // Local only; never trust forwarding headers

	r.Use(gin.Recovery()) // Recovery first (outermost)
	r.Use(mw.RequestID())

	if isDev { // Enable CORS for a local web UI
		r.Use(cors.New(cors.Config{
			AllowOrigins:  []string{"http://localhost:5173", "http://localhost:3000", "http://127.0.0.1:3000"},
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"X-Request-ID", "Content-Type"},
			ExposeHeaders: []string{"X-Request-ID", "X-Total-Count"},
			MaxAge:        12 * time.Hour,
		}))
	}
	r.Use(secure.New(secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		IsDevelopment:      isDev,
	}))

	r.Use(mw.AccessLog(log))
	r.Use(mw.LimitConcurrentRequests(16, socketTimeout))

	handler.NewControlHandler(log, ctrl).Register(r)
	return r
}
