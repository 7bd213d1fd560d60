package main

import (
	"encoding/json"
	"fmt"

	"github.com/arkade-os/kittyd/internal/core/application"
	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/pkg/errors"
	"github.com/urfave/cli/v2"
)

var (
	createCommand = cli.Command{
		Name:   "create",
		Usage:  "Create a new asset owned by the caller",
		Action: create,
	}
	mintCommand = cli.Command{
		Name:   "mint",
		Usage:  "Mint the given asset to an owner",
		Flags:  []cli.Flag{idFlag, dnaFlag, generationFlag, mintToFlag},
		Action: mint,
	}
	setPriceCommand = cli.Command{
		Name:   "set-price",
		Usage:  "Set the asking price of an asset owned by the caller",
		Flags:  []cli.Flag{idFlag, priceFlag},
		Action: setPrice,
	}
	transferCommand = cli.Command{
		Name:   "transfer",
		Usage:  "Give an asset owned by the caller to another account",
		Flags:  []cli.Flag{idFlag, transferToFlag},
		Action: transfer,
	}
	buyCommand = cli.Command{
		Name:   "buy",
		Usage:  "Buy an asset for its asking price",
		Flags:  []cli.Flag{idFlag, maxPriceFlag},
		Action: buy,
	}
	depositCommand = cli.Command{
		Name:   "deposit",
		Usage:  "Credit funds to an account",
		Flags:  []cli.Flag{ownerFlag, amountFlag},
		Action: deposit,
	}
	balanceCommand = cli.Command{
		Name:   "balance",
		Usage:  "Show the funds of an account",
		Flags:  []cli.Flag{ownerFlag},
		Action: balance,
	}
	assetCommand = cli.Command{
		Name:   "asset",
		Usage:  "Show an asset and its owner",
		Flags:  []cli.Flag{idFlag},
		Action: getAsset,
	}
	listCommand = cli.Command{
		Name:   "list",
		Usage:  "List all assets, or those of an owner, in registry order",
		Flags:  []cli.Flag{listOwnerFlag, pageSizeFlag, pageFlag},
		Action: listAssets,
	}
	auditCommand = cli.Command{
		Name:   "audit",
		Usage:  "Verify the consistency of the ledger indexes",
		Action: audit,
	}
)

func create(ctx *cli.Context) error {
	svc, err := cfg.AppService()
	if err != nil {
		return err
	}
	asset, typedErr := svc.CreateAsset(ctx.Context)
	if typedErr != nil {
		return typedErr
	}
	return printJSON(asset)
}

func mint(ctx *cli.Context) error {
	id, err := parseHash(ctx.String(idFlagName))
	if err != nil {
		return err
	}
	dna := id
	if ctx.IsSet(dnaFlagName) {
		if dna, err = parseHash(ctx.String(dnaFlagName)); err != nil {
			return err
		}
	}

	svc, err := cfg.AppService()
	if err != nil {
		return err
	}
	asset := domain.Asset{
		Id:          id,
		LineageSeed: dna,
		Generation:  ctx.Uint64(generationFlagName),
	}
	if typedErr := svc.Mint(ctx.Context, ctx.String(toFlagName), asset); typedErr != nil {
		return typedErr
	}
	return printJSON(application.AssetInfo{Asset: asset, Owner: ctx.String(toFlagName)})
}

func setPrice(ctx *cli.Context) error {
	id, err := parseHash(ctx.String(idFlagName))
	if err != nil {
		return err
	}
	svc, err := cfg.AppService()
	if err != nil {
		return err
	}
	if typedErr := svc.SetPrice(ctx.Context, id, ctx.Uint64(priceFlagName)); typedErr != nil {
		return typedErr
	}
	return printAsset(ctx, id)
}

func transfer(ctx *cli.Context) error {
	id, err := parseHash(ctx.String(idFlagName))
	if err != nil {
		return err
	}
	svc, err := cfg.AppService()
	if err != nil {
		return err
	}
	if typedErr := svc.Transfer(ctx.Context, ctx.String(toFlagName), id); typedErr != nil {
		return typedErr
	}
	return printAsset(ctx, id)
}

func buy(ctx *cli.Context) error {
	id, err := parseHash(ctx.String(idFlagName))
	if err != nil {
		return err
	}
	svc, err := cfg.AppService()
	if err != nil {
		return err
	}
	if typedErr := svc.Buy(ctx.Context, id, ctx.Uint64(maxPriceFlagName)); typedErr != nil {
		return typedErr
	}
	return printAsset(ctx, id)
}

func deposit(ctx *cli.Context) error {
	svc, err := cfg.AppService()
	if err != nil {
		return err
	}
	owner := ctx.String(ownerFlagName)
	if typedErr := svc.Deposit(ctx.Context, owner, ctx.Uint64(amountFlagName)); typedErr != nil {
		return typedErr
	}
	return printBalance(ctx, svc, owner)
}

func balance(ctx *cli.Context) error {
	svc, err := cfg.AppService()
	if err != nil {
		return err
	}
	return printBalance(ctx, svc, ctx.String(ownerFlagName))
}

func getAsset(ctx *cli.Context) error {
	id, err := parseHash(ctx.String(idFlagName))
	if err != nil {
		return err
	}
	return printAsset(ctx, id)
}

func listAssets(ctx *cli.Context) error {
	var page *application.Page
	if size := ctx.Int(pageSizeFlagName); size > 0 {
		page = &application.Page{
			PageSize: int32(size),
			PageNum:  int32(ctx.Int(pageFlagName)),
		}
	}

	resp, typedErr := cfg.IndexerService().ListAssets(ctx.Context, ctx.String(ownerFlagName), page)
	if typedErr != nil {
		return typedErr
	}
	return printJSON(resp)
}

func audit(ctx *cli.Context) error {
	report, typedErr := cfg.IndexerService().VerifyIntegrity(ctx.Context)
	if typedErr != nil {
		return typedErr
	}
	return printJSON(report)
}

func printAsset(ctx *cli.Context, id domain.Hash) error {
	info, typedErr := cfg.IndexerService().GetAsset(ctx.Context, id)
	if typedErr != nil {
		return typedErr
	}
	return printJSON(info)
}

func printBalance(ctx *cli.Context, svc application.Service, owner string) error {
	amount, typedErr := svc.Balance(ctx.Context, owner)
	if typedErr != nil {
		return typedErr
	}
	return printJSON(map[string]any{"owner": owner, "balance": amount})
}

func parseHash(s string) (domain.Hash, error) {
	h, err := domain.NewHashFromString(s)
	if err != nil {
		return domain.Hash{}, errors.INVALID_ARGUMENT.Wrap(err).
			WithMetadata(map[string]any{"value": s})
	}
	return h, nil
}

func printJSON(resp interface{}) error {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(jsonBytes))
	return nil
}
