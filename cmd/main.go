package main

import (
	"os"

	_ "time/tzdata"

	"github.com/ujjwalpatil07/MilkProductsDairy/internal/cli"

	_ "github.com/ujjwalpatil07/MilkProductsDairy/docs"
)

var version = "dev"

// @title Dairy Storefront API
// @version 1.0
// @description Products, delivery addresses, orders and PDF order receipts.
// @BasePath /api/v1
func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
