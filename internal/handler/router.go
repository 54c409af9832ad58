package handler

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/escrowauction/internal/service"
)

// Services bundles the service layer the router exposes.
type Services struct {
	Auctions      *service.AuctionService
	Wallets       *service.WalletService
	Allowlist     *service.AllowlistService
	Notifications *service.NotificationService
	Webhooks      *service.WebhookService
}

// NewRouter creates a chi router with all routes registered, request logging,
// and Content-Type validation middleware. stream serves GET /ws and may be
// nil.
func NewRouter(svcs Services, stream http.Handler, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	// Create handlers.
	auctionH := NewAuctionHandler(svcs.Auctions)
	walletH := NewWalletHandler(svcs.Wallets)
	allowlistH := NewAllowlistHandler(svcs.Allowlist)
	notificationH := NewNotificationHandler(svcs.Notifications)
	webhookH := NewWebhookHandler(svcs.Webhooks)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Allowlist administration.
	r.Get("/allowlist", allowlistH.List)
	r.Post("/allowlist", allowlistH.Approve)
	r.Delete("/allowlist/{contract}", allowlistH.Revoke)

	// Wallet routes.
	r.Route("/wallets/{address}", func(r chi.Router) {
		r.Get("/", walletH.Get)
		r.Post("/deposit", walletH.Deposit)
		r.Post("/assets", walletH.MintAsset)
		r.Post("/approvals", walletH.SetApproval)
	})

	// Auction routes.
	r.Post("/auctions", auctionH.Create)
	r.Get("/auctions", auctionH.List)
	r.Route("/auctions/{contract}/{token_id}/{sale_index}", func(r chi.Router) {
		r.Get("/", auctionH.Get)
		r.Put("/", auctionH.Update)
		r.Delete("/", auctionH.Cancel)
		r.Post("/bids", auctionH.Bid)
		r.Post("/finalize", auctionH.Finalize)
	})

	// Notification routes.
	r.Get("/notifications", notificationH.List)
	if stream != nil {
		r.Handle("/ws", stream)
	}

	// Webhook routes.
	r.Post("/webhooks", webhookH.Upsert)
	r.Get("/webhooks", webhookH.List)
	r.Delete("/webhooks/{webhook_id}", webhookH.Delete)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT, and
// PATCH requests that carry a body. If the Content-Type header doesn't start
// with "application/json", it returns 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hasBody := r.ContentLength != 0
		if hasBody && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, codeInvalidRequest,
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
