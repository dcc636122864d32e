package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"academy/internal/apperr"
	"academy/internal/attendance"
	"academy/internal/auth"
	"academy/internal/batch"
	"academy/internal/clock"
	"academy/internal/config"
	"academy/internal/httpmiddleware"
	"academy/internal/metrics"
	"academy/internal/qrcode"
	"academy/internal/queue"
	"academy/internal/quiz"
	"academy/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "academy:attendance")
	}

	clk := clock.System{}
	dir := batch.NewPGDirectory(db.Client)
	attRepo := attendance.NewRepository(db.Client)
	att := attendance.NewService(attRepo, attRepo, dir, clk)
	issuer := attendance.NewIssuer(attRepo, dir, clk, cfg.TokenValidityHours)
	quizRepo := quiz.NewRepository(db.Client)
	quizzes := quiz.NewService(quizRepo, quizRepo, clk)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	// Credential verification is the identity provider's job; this endpoint
	// exchanges an already-vouched principal for a signed pair.
	r.POST("/v1/auth/token", func(c *gin.Context) {
		var req struct {
			Subject string `json:"subject" binding:"required"`
			Role    string `json:"role" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Role != auth.RoleStudent && req.Role != auth.RoleTrainer && req.Role != auth.RoleAdmin {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
			return
		}

		tokens, err := auth.Issue(req.Subject, req.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	authGroup := r.Group("/v1", auth.UserAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	authGroup.POST("/attendance/redeem", func(c *gin.Context) {
		var req struct {
			StudentID string `json:"student_id" binding:"required"`
			TokenID   string `json:"token_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		claims, _ := auth.ClaimsFrom(c)
		if claims.Role == auth.RoleStudent && claims.Subject != req.StudentID {
			c.JSON(http.StatusForbidden, gin.H{"error": "student mismatch"})
			return
		}

		rec, err := att.Redeem(c.Request.Context(), req.StudentID, req.TokenID)
		if err != nil {
			metrics.Redemptions.WithLabelValues(redeemOutcome(err)).Inc()
			respondErr(c, err)
			return
		}
		metrics.Redemptions.WithLabelValues("ok").Inc()

		if err := q.Publish(c.Request.Context(), queue.Event{
			Type:      queue.EventAttendanceMarked,
			RecordID:  rec.ID,
			StudentID: rec.StudentID,
			BatchID:   rec.BatchID,
			MarkedAt:  rec.MarkedAt,
		}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}

		c.JSON(http.StatusCreated, rec)
	})

	authGroup.GET("/students/:id/attendance", func(c *gin.Context) {
		studentID := c.Param("id")
		claims, _ := auth.ClaimsFrom(c)
		if claims.Role == auth.RoleStudent && claims.Subject != studentID {
			c.JSON(http.StatusForbidden, gin.H{"error": "student mismatch"})
			return
		}
		records, err := att.HistoryForStudent(c.Request.Context(), studentID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records})
	})

	staffGroup := authGroup.Group("", auth.RequireRole(auth.RoleTrainer))

	staffGroup.GET("/attendance", func(c *gin.Context) {
		date, err := time.Parse("2006-01-02", c.Query("date"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be yyyy-mm-dd"})
			return
		}
		records, err := att.ForDate(c.Request.Context(), date)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records})
	})

	staffGroup.POST("/batches/:id/token", func(c *gin.Context) {
		var req struct {
			ValidityHours int `json:"validity_hours"`
		}
		_ = c.ShouldBindJSON(&req)

		tok, err := issuer.IssueForBatch(c.Request.Context(), c.Param("id"), req.ValidityHours)
		if err != nil {
			respondErr(c, err)
			return
		}
		metrics.TokensIssued.Inc()
		_ = redisClient.CacheBatchToken(c.Request.Context(), tok.BatchID, tok.ID, time.Until(tok.ExpiresAt))

		image, err := qrcode.RenderDataURL(tok.Payload)
		if err != nil {
			log.Printf("qr render failed: %v", err)
		}
		c.JSON(http.StatusCreated, gin.H{"token": tok, "qr_image": image})
	})

	staffGroup.GET("/batches/:id/token", func(c *gin.Context) {
		batchID := c.Param("id")

		var tok attendance.Token
		var err error
		if cached := redisClient.CachedBatchToken(c.Request.Context(), batchID); cached != "" {
			if found, gerr := attRepo.GetToken(c.Request.Context(), cached); gerr == nil && found != nil && found.Active {
				tok = *found
			}
		}
		if tok.ID == "" {
			tok, err = att.CurrentToken(c.Request.Context(), batchID)
			if err != nil {
				respondErr(c, err)
				return
			}
			_ = redisClient.CacheBatchToken(c.Request.Context(), batchID, tok.ID, time.Until(tok.ExpiresAt))
		}

		image, err := qrcode.RenderDataURL(tok.Payload)
		if err != nil {
			log.Printf("qr render failed: %v", err)
		}
		c.JSON(http.StatusOK, gin.H{"token": tok, "qr_image": image})
	})

	authGroup.GET("/quizzes", func(c *gin.Context) {
		open, err := quizzes.Open(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"quizzes": open})
	})

	authGroup.GET("/quizzes/:id/questions", func(c *gin.Context) {
		questions, err := quizzes.QuestionsForStudent(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"questions": questions})
	})

	authGroup.POST("/quizzes/:id/attempts", func(c *gin.Context) {
		var req struct {
			StudentID string            `json:"student_id" binding:"required"`
			Answers   map[string]string `json:"answers" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		claims, _ := auth.ClaimsFrom(c)
		if claims.Role == auth.RoleStudent && claims.Subject != req.StudentID {
			c.JSON(http.StatusForbidden, gin.H{"error": "student mismatch"})
			return
		}

		attempt, err := quizzes.Submit(c.Request.Context(), req.StudentID, c.Param("id"), req.Answers)
		if err != nil {
			metrics.QuizAttempts.WithLabelValues(attemptOutcome(err)).Inc()
			respondErr(c, err)
			return
		}
		metrics.QuizAttempts.WithLabelValues("ok").Inc()
		c.JSON(http.StatusCreated, attempt)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

func respondErr(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func redeemOutcome(err error) string {
	switch apperr.KindOf(err) {
	case apperr.NotFound:
		return "not_found"
	case apperr.Expired:
		return "expired"
	case apperr.AlreadyMarked:
		return "already_marked"
	default:
		return "error"
	}
}

func attemptOutcome(err error) string {
	switch apperr.KindOf(err) {
	case apperr.NotFound:
		return "not_found"
	case apperr.AlreadyAttempted:
		return "already_attempted"
	case apperr.Validation:
		return "invalid"
	default:
		return "error"
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
