// Package main seeds a store with a demo catalog and prints a development token.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bloomledger/internal/app"
	"bloomledger/internal/config"
	"bloomledger/internal/core/apperror"
	appctx "bloomledger/internal/core/context"
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain/item"
	"bloomledger/internal/domain/partner"
	"bloomledger/internal/infrastructure/auth"
	"bloomledger/internal/infrastructure/storage"
	"bloomledger/pkg/logger"
)

const seedOperator = "seed"

type demoItem struct {
	kind     item.Kind
	code     string
	name     string
	category string
	price    string
	stock    int64
}

var demoCatalog = []demoItem{
	{item.KindProduct, "BQ-ROSE-12", "Red rose bouquet (12)", "bouquet", "55000", 20},
	{item.KindProduct, "BQ-TULIP-10", "Tulip bouquet (10)", "bouquet", "42000", 15},
	{item.KindProduct, "BS-ORCHID", "Phalaenopsis orchid pot", "plant", "89000", 8},
	{item.KindProduct, "WR-CONG-L", "Congratulation wreath (large)", "wreath", "120000", 5},
	{item.KindMaterial, "MT-WRAP-KR", "Kraft wrapping paper", "wrapping", "1500", 300},
	{item.KindMaterial, "MT-RIBBON-R", "Satin ribbon red", "ribbon", "800", 500},
	{item.KindMaterial, "MT-FOAM", "Floral foam brick", "base", "2500", 120},
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	branches := flag.String("branches", "Gangnam,Hongdae", "comma-separated branches to seed")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed development token")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx := context.Background()

	backend, err := storage.Open(ctx, cfg, nil)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer backend.Close()

	services, err := app.New(backend, cfg.Loyalty, nil)
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}

	branchList := splitList(*branches)
	created, err := seedCatalog(ctx, services, branchList)
	if err != nil {
		log.Fatalw("failed to seed catalog", "error", err)
	}
	if err := seedPartners(ctx, services); err != nil {
		log.Fatalw("failed to seed partners", "error", err)
	}
	log.Infow("catalog seeded", "branches", branchList, "items", created)

	jwtService, err := auth.NewJWTService(cfg.JWT)
	if err != nil {
		log.Fatalw("invalid jwt configuration", "error", err)
	}
	token, err := jwtService.Issue(appctx.Operator{
		UserID:  "dev",
		Email:   "dev@bloomledger.local",
		Name:    "Developer",
		Branch:  branchList[0],
		Roles:   []string{"admin"},
		IsAdmin: true,
	}, *tokenTTL)
	if err != nil {
		log.Fatalw("failed to issue token", "error", err)
	}
	fmt.Println(token)
}

// seedCatalog creates the demo items in every branch. Items that already
// exist are skipped so the command can be rerun.
func seedCatalog(ctx context.Context, services *app.Services, branches []string) (int, error) {
	created := 0
	for _, branch := range branches {
		for _, d := range demoCatalog {
			it := item.New(d.kind, d.code, branch, d.name)
			it.MainCategory = d.category
			it.Price = types.MustMoney(d.price)
			it.Stock = d.stock

			err := services.Items.Create(ctx, seedOperator, it)
			if apperror.IsDuplicate(err) {
				continue
			}
			if err != nil {
				return created, fmt.Errorf("item %s/%s: %w", branch, d.code, err)
			}
			created++
		}
	}
	return created, nil
}

func seedPartners(ctx context.Context, services *app.Services) error {
	existing, err := services.Partners.List(ctx, partner.Filter{})
	if err != nil {
		return err
	}
	if existing.TotalCount > 0 {
		return nil
	}
	farm := partner.New("Yangjae Flower Market", partner.TypeSupplier)
	farm.Contact = "02-579-8100"
	return services.Partners.Create(ctx, farm)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		out = []string{"main"}
	}
	return out
}
