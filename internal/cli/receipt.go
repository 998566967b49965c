package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ujjwalpatil07/MilkProductsDairy/internal/domain"
)

var (
	orderFile  string
	outFile    string
	textOutput bool
)

// orderDoc is the on-disk shape of an already resolved order. Prices
// are strings so they reach decimal without a float round trip.
type orderDoc struct {
	ID          string `yaml:"id"`
	Status      string `yaml:"status"`
	PaymentMode string `yaml:"payment_mode"`
	Gateway     *struct {
		PaymentID string `yaml:"payment_id"`
		OrderID   string `yaml:"order_id"`
	} `yaml:"gateway"`
	CreatedAt string `yaml:"created_at"`
	Address   *struct {
		Name          string `yaml:"name"`
		Phone         string `yaml:"phone"`
		AddressType   string `yaml:"address_type"`
		StreetAddress string `yaml:"street_address"`
		City          string `yaml:"city"`
		State         string `yaml:"state"`
		Pincode       string `yaml:"pincode"`
	} `yaml:"address"`
	Items []struct {
		ProductID string `yaml:"product_id"`
		Name      string `yaml:"name"`
		Price     string `yaml:"price"`
		Quantity  int64  `yaml:"quantity"`
	} `yaml:"items"`
}

var receiptCmd = &cobra.Command{
	Use:   "receipt",
	Short: "Render a receipt from an order file",
	Long: `Render the PDF receipt of an order described in a YAML or JSON file,
without connecting to a store. Use --text to print the laid out lines instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		order, err := loadOrderFile(orderFile)
		if err != nil {
			return err
		}

		renderer, err := newRenderer()
		if err != nil {
			return err
		}

		doc, err := renderer.Layout(order)
		if err != nil {
			return err
		}

		if textOutput {
			for _, line := range doc.Lines() {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		}

		path := outFile
		if path == "" {
			path = doc.FileName()
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := renderer.Draw(f, doc); err != nil {
			f.Close()
			os.Remove(path)
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}

		logger.Info("receipt written", "order_id", doc.OrderID, "path", path, "pages", doc.Pages)
		return nil
	},
}

func init() {
	receiptCmd.Flags().StringVar(&orderFile, "order", "", "path to the order file")
	receiptCmd.Flags().StringVarP(&outFile, "out", "o", "", "output PDF path (default Order_<id>_Receipt.pdf)")
	receiptCmd.Flags().BoolVar(&textOutput, "text", false, "print the receipt lines instead of writing a PDF")
	_ = receiptCmd.MarkFlagRequired("order")
}

func loadOrderFile(path string) (*domain.ReceiptOrder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read order file: %w", err)
	}

	var in orderDoc
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to parse order file: %w", err)
	}

	order := &domain.ReceiptOrder{
		ID:          in.ID,
		Status:      domain.OrderStatus(in.Status),
		PaymentMode: domain.PaymentMode(in.PaymentMode),
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusPlaced
	}

	if in.CreatedAt == "" {
		return nil, fmt.Errorf("order %s: created_at is required", in.ID)
	}
	order.CreatedAt, err = time.Parse(time.RFC3339, in.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}

	if in.Gateway != nil {
		order.Gateway = &domain.GatewayRef{
			PaymentID: in.Gateway.PaymentID,
			OrderID:   in.Gateway.OrderID,
		}
	}

	if in.Address != nil {
		order.Address = &domain.Address{
			Name:          in.Address.Name,
			Phone:         in.Address.Phone,
			AddressType:   in.Address.AddressType,
			StreetAddress: in.Address.StreetAddress,
			City:          in.Address.City,
			State:         in.Address.State,
			Pincode:       in.Address.Pincode,
		}
	}

	for i, it := range in.Items {
		price, err := decimal.NewFromString(it.Price)
		if err != nil {
			return nil, fmt.Errorf("item %d: invalid price %q: %w", i+1, it.Price, err)
		}
		item := domain.ReceiptItem{
			ProductID: it.ProductID,
			Price:     price,
			Quantity:  it.Quantity,
		}
		if it.Name != "" {
			item.Product = &domain.ProductSummary{Name: it.Name}
		}
		order.Items = append(order.Items, item)
	}

	return order, nil
}
