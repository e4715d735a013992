package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snap2sell/middleware"
	"snap2sell/newchat"
	"snap2sell/ratelim"
	"snap2sell/routes"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

func newServeCommand(rt *runtime) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the storefront API and live updates to a local browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = rt.cfg.Server.Addr
			}
			return serve(cmd.Context(), rt, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}

func serve(parent context.Context, rt *runtime, addr string) error {
	a, log := rt.app, rt.log

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// keep the cart badge fresh while serving
	a.WatchCart(ctx)

	hub := newchat.NewHub(log, originsFor(rt.cfg.Server.AllowedOrigins))
	go hub.Run()
	hub.Attach(a.Bus)

	router := httprouter.New()
	routes.RoutesWrapper(router, a, ratelim.NewRateLimiter(rt.cfg.API.Rate, rt.cfg.API.Burst), hub)

	// CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   rt.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)
	handler := middleware.Logging(log)(middleware.SecurityHeaders(corsHandler))

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      time.Minute,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}
	server.RegisterOnShutdown(func() {
		log.Info("Shutting down websocket hub")
		hub.Stop()
	})

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("Storefront listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutdown signal received; shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("Server stopped cleanly")
	return nil
}

// originsFor turns the CORS list into the websocket origin allow-list; "*" allows any.
func originsFor(origins []string) []string {
	for _, o := range origins {
		if o == "*" {
			return nil
		}
	}
	return origins
}
