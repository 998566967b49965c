package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	httpapi "github.com/ujjwalpatil07/MilkProductsDairy/internal/http"
	"github.com/ujjwalpatil07/MilkProductsDairy/internal/receipt"
	"github.com/ujjwalpatil07/MilkProductsDairy/internal/repository"
	"github.com/ujjwalpatil07/MilkProductsDairy/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  `Start the storefront HTTP API, including the order receipt download endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		storeURL, err := cfg.GetStoreURL(&flags)
		if err != nil {
			return err
		}
		driver := cfg.GetDriver(&flags)
		store, err := repository.Open(ctx, repository.Options{
			Driver:   driver,
			URL:      storeURL,
			Database: cfg.Store.Database,
		})
		if err != nil {
			return fmt.Errorf("failed to open %s store: %w", driver, err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
			defer cancel()
			if err := store.Close(closeCtx); err != nil {
				logger.Error("store close failed", "error", err)
			}
		}()

		renderer, err := newRenderer()
		if err != nil {
			return err
		}

		gin.SetMode(gin.ReleaseMode)
		srv := httpapi.NewServer(
			logger,
			service.NewProductService(store.Products),
			service.NewAddressService(store.Addresses),
			service.NewOrderService(store.Products, store.Addresses, store.Orders, store.Tx),
			service.NewReceiptService(store.Receipts, renderer),
		)

		httpServer := &http.Server{
			Addr:         cfg.GetAddr(&flags),
			Handler:      srv.Engine(),
			ReadTimeout:  cfg.GetReadTimeout(),
			WriteTimeout: cfg.GetWriteTimeout(),
			IdleTimeout:  cfg.GetIdleTimeout(),
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("http server listening", "addr", httpServer.Addr, "store", driver)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&flags.Addr, "addr", "", "listen address")
	serveCmd.Flags().StringVar(&flags.Driver, "store", "", "store driver (memory, mongo, postgres)")
	serveCmd.Flags().StringVar(&flags.URL, "store-url", "", "store connection URL")
}

func newRenderer() (*receipt.Renderer, error) {
	loc, err := cfg.GetLocation()
	if err != nil {
		return nil, err
	}
	opts := receipt.Options{
		CurrencySymbol: cfg.Receipt.CurrencySymbol,
		GatewayName:    cfg.Receipt.GatewayName,
		Location:       loc,
		FontDir:        cfg.Receipt.FontDir,
		CoreFonts:      cfg.Receipt.CoreFonts,
	}
	if cfg.Receipt.Organization != "" {
		opts.Letterhead = receipt.Letterhead{
			Organization: cfg.Receipt.Organization,
			Lines:        cfg.Receipt.Lines,
			Closing:      cfg.Receipt.Closing,
		}
	}
	r, err := receipt.NewRenderer(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create receipt renderer: %w", err)
	}
	return r, nil
}
