package verifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Server struct {
	Host          string
	Port          int
	CORSWhitelist []string
	WriteTimeout  time.Duration

	Store    Store
	Verifier Verifier
	Versions VersionResolver
	Reporter EntryReporter
}

type PingResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// CORS middleware. All origins are allowed when no whitelist is set.
func (server *Server) corsMiddleware() gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: len(server.CORSWhitelist) > 0,
		MaxAge:           12 * time.Hour,
	}
	if len(server.CORSWhitelist) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = server.CORSWhitelist
	}
	return cors.New(corsConfig)
}

// Log access requests in proper format
func (server *Server) logMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		ip := c.GetHeader("X-Real-Ip")
		if ip == "" {
			ip = c.ClientIP()
		}
		RootLogger.Info().
			Str("ip", ip).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(started)).
			Msg("request")
	}
}

// Handle panic errors to prevent server shutdown
func (server *Server) panicMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		RootLogger.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("recovered")
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	})
}

func (server *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(server.logMiddleware(), server.panicMiddleware(), server.corsMiddleware())

	router.GET("/ping", server.pingRoute)
	router.GET("/:network/:id", server.entriesRoute)
	router.POST("/:network/:id", server.submitRoute)
	router.GET("/:network/:id/:vout", server.entriesRoute)
	router.POST("/:network/:id/:vout", server.submitRoute)

	return router
}

func (server *Server) pingRoute(c *gin.Context) {
	c.JSON(http.StatusOK, PingResponse{Status: "ok"})
}

// locatorFromRequest builds a validated locator from the path parameters and
// the ver query parameter.
func locatorFromRequest(c *gin.Context) (Locator, error) {
	locator := Locator{
		Network: c.Param("network"),
		Version: c.Query("ver"),
	}
	rawVout := c.Param("vout")
	if rawVout == "" {
		locator.ScriptHash = c.Param("id")
	} else {
		locator.TxID = c.Param("id")
		vout, voutErr := ParseVout(rawVout)
		if voutErr != nil {
			return locator, voutErr
		}
		locator.Vout = vout
	}
	return locator, ValidateLocator(locator)
}

// entriesRoute responds with the stored entries for the locator, optionally
// limited to a single scrypt-ts version.
func (server *Server) entriesRoute(c *gin.Context) {
	locator, locatorErr := locatorFromRequest(c)
	if locatorErr != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: locatorErr.Error()})
		return
	}

	entries, findErr := server.Store.FindEntries(c.Request.Context(), locator)
	if findErr != nil {
		RootLogger.Error().Err(findErr).Str("locator", locator.Path()).Msg("Unable to load entries")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Unable to load entries"})
		return
	}

	if locator.Version != "" {
		filtered := entries[:0]
		for _, entry := range entries {
			if entry.ScryptTSVersion == locator.Version {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	if len(entries) == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("no entries found for %s", locator.Path())})
		return
	}

	c.JSON(http.StatusOK, entries)
}

func (server *Server) resolveVersion(ctx context.Context, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	if server.Versions == nil {
		return "", errors.New("no scrypt-ts version specified and no registry configured")
	}
	return server.Versions.LatestVersion(ctx, SCRYPT_TS_PACKAGE)
}

// submitRoute checks the submitted code against the locator and stores it. An
// entry already stored for the same locator and version is returned as is.
func (server *Server) submitRoute(c *gin.Context) {
	ctx := c.Request.Context()

	locator, locatorErr := locatorFromRequest(c)
	if locatorErr != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: locatorErr.Error()})
		return
	}

	var submission Submission
	if bindErr := c.ShouldBindJSON(&submission); bindErr != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Unable to parse body"})
		return
	}
	if validateErr := ValidateSubmission(submission); validateErr != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: validateErr.Error()})
		return
	}

	version, versionErr := server.resolveVersion(ctx, locator.Version)
	if versionErr != nil {
		RootLogger.Error().Err(versionErr).Msg("Unable to resolve scrypt-ts version")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: fmt.Sprintf("Unable to resolve scrypt-ts version: %s", versionErr.Error())})
		return
	}
	locator.Version = version

	existing, findErr := server.Store.FindEntry(ctx, locator, version)
	if findErr == nil {
		c.JSON(http.StatusOK, existing)
		return
	}
	if !errors.Is(findErr, ErrEntryNotFound) {
		RootLogger.Error().Err(findErr).Str("locator", locator.Path()).Msg("Unable to load entry")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Unable to load entry"})
		return
	}

	verified := false
	if server.Verifier != nil {
		result, verifyErr := server.Verifier.Verify(ctx, NewVerificationRequest(locator, submission))
		if verifyErr != nil {
			RootLogger.Error().Err(verifyErr).Str("locator", locator.Path()).Msg("Verifier failed")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Unable to verify code"})
			return
		}
		if !result.Match {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("code does not match script: %s", result.Message)})
			return
		}
		verified = true
	}

	entry := NewEntry(locator, submission, verified)
	saveErr := server.Store.SaveEntry(ctx, entry)
	if errors.Is(saveErr, ErrEntryExists) {
		winner, winnerErr := server.Store.FindEntry(ctx, locator, version)
		if winnerErr == nil {
			c.JSON(http.StatusOK, winner)
			return
		}
		saveErr = winnerErr
	}
	if saveErr != nil {
		RootLogger.Error().Err(saveErr).Str("locator", locator.Path()).Msg("Unable to store entry")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Unable to store entry"})
		return
	}

	RootLogger.Info().Str("locator", locator.Path()).Str("version", version).Bool("verified", verified).Msg("Stored entry")

	if server.Reporter != nil {
		if reportErr := server.Reporter.Report(ctx, entry); reportErr != nil {
			RootLogger.Warn().Err(reportErr).Uint("entry", entry.ID).Msg("Unable to report entry")
		}
	}

	c.JSON(http.StatusOK, entry)
}

// Serve runs the HTTP server until ctx is cancelled.
func (server *Server) Serve(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)

	s := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", server.Host, server.Port),
		Handler:      server.Router(),
		ReadTimeout:  40 * time.Second,
		WriteTimeout: server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		RootLogger.Info().Msgf("Starting scrypt-verifier HTTP server at %s:%d", server.Host, server.Port)
		serveErr <- s.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server listener, err: %v", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		RootLogger.Info().Msg("Shutting down HTTP server")
		return s.Shutdown(shutdownCtx)
	}
}
