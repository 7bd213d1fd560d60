package main

import (
	"github.com/urfave/cli/v2"
)

const (
	idFlagName         = "id"
	dnaFlagName        = "dna"
	generationFlagName = "generation"
	toFlagName         = "to"
	priceFlagName      = "price"
	maxPriceFlagName   = "max-price"
	ownerFlagName      = "owner"
	amountFlagName     = "amount"
	pageSizeFlagName   = "page-size"
	pageFlagName       = "page"
)

var (
	idFlag = &cli.StringFlag{
		Name:     idFlagName,
		Usage:    "hex encoded id of the asset",
		Required: true,
	}
	dnaFlag = &cli.StringFlag{
		Name:  dnaFlagName,
		Usage: "hex encoded lineage seed of the asset, defaults to the asset id",
	}
	generationFlag = &cli.Uint64Flag{
		Name:  generationFlagName,
		Usage: "generation of the asset",
	}
	mintToFlag = &cli.StringFlag{
		Name:     toFlagName,
		Usage:    "owner of the minted asset",
		Required: true,
	}
	transferToFlag = &cli.StringFlag{
		Name:     toFlagName,
		Usage:    "recipient of the asset",
		Required: true,
	}
	priceFlag = &cli.Uint64Flag{
		Name:     priceFlagName,
		Usage:    "asking price, 0 withdraws the asset from sale",
		Required: true,
	}
	maxPriceFlag = &cli.Uint64Flag{
		Name:     maxPriceFlagName,
		Usage:    "highest price the caller accepts to pay",
		Required: true,
	}
	ownerFlag = &cli.StringFlag{
		Name:     ownerFlagName,
		Usage:    "account",
		Required: true,
	}
	listOwnerFlag = &cli.StringFlag{
		Name:  ownerFlagName,
		Usage: "list only the assets of this account",
	}
	amountFlag = &cli.Uint64Flag{
		Name:     amountFlagName,
		Usage:    "amount to credit",
		Required: true,
	}
	pageSizeFlag = &cli.IntFlag{
		Name:  pageSizeFlagName,
		Usage: "number of assets per page, 0 lists everything",
	}
	pageFlag = &cli.IntFlag{
		Name:  pageFlagName,
		Usage: "page number, starting from 1",
		Value: 1,
	}
)
