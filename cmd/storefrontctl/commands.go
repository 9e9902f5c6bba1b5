package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/flashsales"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/vouchers"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errUsage = errors.New("usage")

type orderAdmin interface {
	CancelOrder(ctx context.Context, orderID uuid.UUID, actor orders.Actor) error
	HandlePaymentCallback(ctx context.Context, orderID uuid.UUID, responseCode string) error
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, input orders.UpdateOrderInput) (*orders.OrderSnapshot, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*orders.OrderSnapshot, error)
}

type saleAdmin interface {
	Upsert(ctx context.Context, input flashsales.UpsertSaleInput) (*flashsales.SaleView, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]flashsales.SaleView, error)
}

type catalogAdmin interface {
	CreateProduct(ctx context.Context, tx *gorm.DB, dto inventory.CreateProductDTO) (*models.Product, error)
}

type deadLetters interface {
	List(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
}

type command struct {
	summary string
	run     func(ctx context.Context, c *cli, fs *flag.FlagSet, args []string) error
}

type cli struct {
	orders   orderAdmin
	sales    saleAdmin
	vouchers vouchers.Service
	catalog  catalogAdmin
	dlq      deadLetters
	out      io.Writer
	readFile func(string) ([]byte, error)
}

var commands = map[string]command{
	"discount-create":     {"create a discount code", runDiscountCreate},
	"discount-distribute": {"grant a discount to every customer", runDiscountDistribute},
	"discount-welcome":    {"grant the welcome discount to a user", runDiscountWelcome},
	"flashsale-upsert":    {"create or update a flash sale from a JSON file", runFlashSaleUpsert},
	"flashsale-delete":    {"delete a flash sale and its items", runFlashSaleDelete},
	"flashsale-list":      {"list flash sales with their phase", runFlashSaleList},
	"order-cancel":        {"cancel an order as admin", runOrderCancel},
	"order-status":        {"move an order through fulfilment", runOrderStatus},
	"order-callback":      {"replay a payment gateway callback", runOrderCallback},
	"order-get":           {"print an order", runOrderGet},
	"outbox-dlq-list":     {"list events that failed to publish", runDLQList},
	"product-create":      {"add a product to the catalog", runProductCreate},
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.usage()
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		c.usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(c.out)
	return cmd.run(ctx, c, fs, args[1:])
}

func (c *cli) usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(c.out, "usage: storefrontctl <command> [flags]")
	for _, name := range names {
		fmt.Fprintf(c.out, "  %-20s %s\n", name, commands[name].summary)
	}
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runDiscountCreate(ctx context.Context, c *cli, fs *flag.FlagSet, args []string) error {
	code := fs.String("code", "", "discount code")
	percent := fs.Int("percent", 0, "percentage off (1-100)")
	maxCents := fs.Int64("max-cents", 0, "cap on the discount in cents, 0 for none")
	ends := fs.String("ends", "", "RFC3339 end time, empty for open-ended")
	desc := fs.String("description", "", "description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	input := vouchers.CreateDiscountInput{
		Code:             *code,
		Percentage:       *percent,
		MaxDiscountCents: *maxCents,
		Active:           true,
	}
	if *ends != "" {
		endAt, err := time.Parse(time.RFC3339, *ends)
		if err != nil {
			return fmt.Errorf("parse -ends: %w", err)
		}
		input.EndAt = &endAt
	}
	if *desc != "" {
		input.Description = desc
	}
	discount, err := c.vouchers.CreateDiscount(ctx, input)
	if err != nil {
		return err
	}
	return c.print(discount)
}

func runDiscountDistribute(ctx context.Context, c *cli, fs *flag.FlagSet, args []string) error {
	discountID := fs.String("discount", "", "discount id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID("discount", *discountID)
	if err != nil {
		return err
	}
	created, err := c.vouchers.DistributeToAll(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "granted discount %s to %d customers\n", id, created)
	return nil
}

func runDiscountWelcome(ctx context.Context, c *cli, fs *flag.FlagSet, args []string) error {
	userID := fs.String("user", "", "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID("user", *userID)
	if err != nil {
		return err
	}
	granted, err := c.vouchers.GrantWelcome(ctx, id)
	if err != nil {
		return err
	}
	if !granted {
		fmt.Fprintf(c.out, "user %s already holds the welcome discount\n", id)
		return nil
	}
	fmt.Fprintf(c.out, "welcome discount granted to %s\n", id)
	return nil
}

func runFlashSaleUpsert(ctx context.Context, c *cli, fs *flag.FlagSet, args []string) error {
	file := fs.String("file", "", "path to the sale JSON document")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("%w: -file is required", errUsage)
	}
	raw, err := c.readFile(*file)
	if err != nil {
		return err
	}
	var input flashsales.UpsertSaleInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("decode %s: %w", *file, err)
	}
	sale, err := c.sales.Upsert(ctx, input)
	if err != nil {
		return err
	}
	return c.print(sale)
}

func runFlashSaleDelete(ctx context.Context, c *cli, fs *flag.FlagSet, args []string) error {
	saleID := fs.String("id", "", "flash sale id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID("id", *saleID)
	if err != nil {
		return err
	}
	if err := c.sales.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "flash sale %s deleted\n", id)
	return nil
}

func runFlashSaleList(ctx context.Context, c *cli, fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	sales, err := c.sales.List(ctx)
	if err != nil {
		return err
	}
	return c.print(sales)
}

func runOrderCancel(ctx context.Context, c *cli, fs *flag.FlagSet, args []string) error {
	orderID := fs.String("order", "", "order id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID("order", *orderID)
	if err != nil {
		return err
	}
	if err := c.orders.CancelOrder(ctx, id, adminActor()); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "order %s cancelled\n", id)
	return nil
}

func runOrderStatus(ctx context.Context, c *cli, fs *flag.FlagSet, args []string) error {
	orderID := fs.String("order", "", "order id")
	status := fs.String("status", "", "target status")
	note := fs.String("note", "", "replace the order note")
	eta := fs.String("eta", "", "RFC3339 expected delivery time")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID("order", *orderID)
	if err != nil {
		return err
	}
	var input orders.UpdateOrderInput
	if *status != "" {
		parsed, err := enums.ParseOrderStatus(*status)
		if err != nil {
			return err
		}
		input.Status = &parsed
	}
	if *note != "" {
		input.Note = note
	}
	if *eta != "" {
		at, err := time.Parse(time.RFC3339, *eta)
		if err != nil {
			return fmt.Errorf("parse -eta: %w", err)
		}
		input.ExpectedDeliveryAt = &at
	}
	if input.Status == nil && input.Note == nil && input.ExpectedDeliveryAt == nil {
		return fmt.Errorf("%w: nothing to update", errUsage)
	}
	snapshot, err := c.orders.UpdateOrderStatus(ctx, id, input)
	if err != nil {
		return err
	}
	return c.print(snapshot)
}

func runOrderCallback(ctx context.Context, c *cli, fs *flag.FlagSet, args []string) error {
	orderID := fs.String("order", "", "order id")
	code := fs.String("code", "", "gateway response code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID("order", *orderID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*code) == "" {
		return fmt.Errorf("%w: -code is required", errUsage)
	}
	if err := c.orders.HandlePaymentCallback(ctx, id, *code); err != nil {
		return err
	}
	snapshot, err := c.orders.GetOrder(ctx, id, adminActor())
	if err != nil {
		return err
	}
	return c.print(snapshot)
}

func runOrderGet(ctx context.Context, c *cli, fs *flag.FlagSet, args []string) error {
	orderID := fs.String("order", "", "order id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID("order", *orderID)
	if err != nil {
		return err
	}
	snapshot, err := c.orders.GetOrder(ctx, id, adminActor())
	if err != nil {
		return err
	}
	return c.print(snapshot)
}

func runProductCreate(ctx context.Context, c *cli, fs *flag.FlagSet, args []string) error {
	sku := fs.String("sku", "", "stock keeping unit")
	name := fs.String("name", "", "display name")
	price := fs.Int64("price-cents", 0, "catalog price in cents")
	stock := fs.Int("stock", 0, "units on hand")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*sku) == "" || strings.TrimSpace(*name) == "" {
		return fmt.Errorf("%w: -sku and -name are required", errUsage)
	}
	if *price <= 0 {
		return fmt.Errorf("%w: -price-cents must be positive", errUsage)
	}
	product, err := c.catalog.CreateProduct(ctx, nil, inventory.CreateProductDTO{
		SKU:        *sku,
		Name:       *name,
		PriceCents: *price,
		Stock:      *stock,
	})
	if err != nil {
		return err
	}
	return c.print(product)
}

func runDLQList(ctx context.Context, c *cli, fs *flag.FlagSet, args []string) error {
	limit := fs.Int("limit", 20, "rows to show, newest first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rows, err := c.dlq.List(ctx, *limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(c.out, "dead letter queue is empty")
		return nil
	}
	return c.print(rows)
}

func adminActor() orders.Actor {
	return orders.Actor{Role: enums.UserRoleAdmin}
}

func parseID(flagName, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: -%s is required", errUsage, flagName)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse -%s: %w", flagName, err)
	}
	return id, nil
}
