package application

import (
	"context"
	"fmt"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/internal/core/ports"
	"github.com/arkade-os/kittyd/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type service struct {
	// services
	repoManager ports.RepoManager
	payments    ports.PaymentService
	events      ports.EventSink
	identity    ports.IdentitySource
	seeds       ports.SeedSource
	idGen       ports.IdGenerator

	// config
	maxEnumerationCount uint64
}

func NewService(
	config Config,
	repoManager ports.RepoManager,
	payments ports.PaymentService,
	events ports.EventSink,
	identity ports.IdentitySource,
	seeds ports.SeedSource,
	idGen ports.IdGenerator,
) (Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if payments == nil {
		return nil, fmt.Errorf("missing payment service")
	}
	if events == nil {
		return nil, fmt.Errorf("missing event sink")
	}
	if identity == nil {
		return nil, fmt.Errorf("missing identity source")
	}
	if seeds == nil {
		return nil, fmt.Errorf("missing seed source")
	}
	if idGen == nil {
		return nil, fmt.Errorf("missing id generator")
	}

	return &service{
		repoManager:         repoManager,
		payments:            payments,
		events:              events,
		identity:            identity,
		seeds:               seeds,
		idGen:               idGen,
		maxEnumerationCount: config.MaxEnumerationCount,
	}, nil
}

func (s *service) CreateAsset(ctx context.Context) (asset *domain.Asset, err errors.Error) {
	ctx, span := tracer.Start(ctx, "Service.CreateAsset")
	defer func() { endSpan(span, err) }()

	caller, err := s.resolveCaller(ctx)
	if err != nil {
		return nil, err
	}
	seed, seedErr := s.seeds.Seed(ctx)
	if seedErr != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(seedErr)
	}

	var created domain.Asset
	if err := s.execute(ctx, func(ctx context.Context, l ledger) ([]domain.Event, errors.Error) {
		nonce, err := l.state.GetNonce(ctx)
		if err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(err)
		}
		nextNonce, ok := domain.AddUint64(nonce, 1)
		if !ok {
			return nil, errors.COUNT_OVERFLOW.New("nonce overflow").
				WithMetadata(errors.CountMetadata{Scope: "nonce", Count: nonce})
		}

		id := s.idGen.NewAssetId(seed, caller, nonce)
		created = domain.Asset{Id: id, LineageSeed: id}
		if err := l.mint(ctx, caller, created); err != nil {
			return nil, err
		}
		if err := l.state.SetNonce(ctx, nextNonce); err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(err)
		}
		return []domain.Event{domain.AssetCreated{Owner: caller, Id: id}}, nil
	}); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("asset_id", created.Id.String()))
	log.Debugf("created asset %s for %s", created.Id, caller)
	return &created, nil
}

func (s *service) Mint(ctx context.Context, owner string, asset domain.Asset) (err errors.Error) {
	ctx, span := tracer.Start(ctx, "Service.Mint", assetAttributes(asset.Id)...)
	defer func() { endSpan(span, err) }()

	if owner == "" {
		return errors.INVALID_ARGUMENT.New("missing owner")
	}

	if err := s.execute(ctx, func(ctx context.Context, l ledger) ([]domain.Event, errors.Error) {
		if err := l.mint(ctx, owner, asset); err != nil {
			return nil, err
		}
		return []domain.Event{domain.AssetCreated{Owner: owner, Id: asset.Id}}, nil
	}); err != nil {
		return err
	}

	log.Debugf("minted asset %s to %s", asset.Id, owner)
	return nil
}

func (s *service) SetPrice(
	ctx context.Context, id domain.Hash, price uint64,
) (err errors.Error) {
	ctx, span := tracer.Start(ctx, "Service.SetPrice", assetAttributes(id)...)
	defer func() { endSpan(span, err) }()

	caller, err := s.resolveCaller(ctx)
	if err != nil {
		return err
	}

	if err := s.execute(ctx, func(ctx context.Context, l ledger) ([]domain.Event, errors.Error) {
		asset, err := l.getAsset(ctx, id)
		if err != nil {
			return nil, err
		}
		owner, err := l.ownerOf(ctx, id)
		if err != nil {
			return nil, err
		}
		if owner != caller {
			return nil, errors.NOT_OWNER.New("%s does not own asset %s", caller, id).
				WithMetadata(errors.OwnerMetadata{AssetId: id.String(), Owner: owner, Caller: caller})
		}

		asset.Price = price
		if err := l.state.Assets().Put(ctx, *asset); err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(err)
		}
		return []domain.Event{domain.PriceSet{Owner: caller, Id: id, Price: price}}, nil
	}); err != nil {
		return err
	}

	log.Debugf("price of asset %s set to %d", id, price)
	return nil
}

func (s *service) Transfer(ctx context.Context, to string, id domain.Hash) (err errors.Error) {
	ctx, span := tracer.Start(ctx, "Service.Transfer", assetAttributes(id)...)
	defer func() { endSpan(span, err) }()

	if to == "" {
		return errors.INVALID_ARGUMENT.New("missing recipient")
	}
	caller, err := s.resolveCaller(ctx)
	if err != nil {
		return err
	}

	if err := s.execute(ctx, func(ctx context.Context, l ledger) ([]domain.Event, errors.Error) {
		if err := l.transferFrom(ctx, caller, to, id); err != nil {
			return nil, err
		}
		return []domain.Event{domain.AssetTransferred{From: caller, To: to, Id: id}}, nil
	}); err != nil {
		return err
	}

	log.Debugf("transferred asset %s from %s to %s", id, caller, to)
	return nil
}

// payment is a settled transfer of funds that must be returned to the buyer
// if the purchase does not commit.
type payment struct {
	buyer  string
	seller string
	amount uint64
}

// Buy pays the asking price to the current owner and takes ownership of the
// asset. The transfer is validated before any funds move. Funds that moved
// for an attempt that does not commit, because the transfer failed or the
// ledger transaction was retried or aborted, are refunded.
func (s *service) Buy(ctx context.Context, id domain.Hash, maxPrice uint64) (err errors.Error) {
	ctx, span := tracer.Start(ctx, "Service.Buy", assetAttributes(id)...)
	defer func() { endSpan(span, err) }()

	buyer, err := s.resolveCaller(ctx)
	if err != nil {
		return err
	}

	var pending *payment
	refundPending := func() error {
		if pending == nil {
			return nil
		}
		p := *pending
		pending = nil
		return s.refund(ctx, id, p)
	}

	var bought domain.AssetBought
	if err := s.execute(ctx, func(ctx context.Context, l ledger) ([]domain.Event, errors.Error) {
		// The ledger state of a retried attempt never saw the previous payment.
		if err := refundPending(); err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(err)
		}

		asset, err := l.getAsset(ctx, id)
		if err != nil {
			return nil, err
		}
		seller, ok, ownerErr := l.state.Owners().OwnerOf(ctx, id)
		if ownerErr != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(ownerErr)
		}
		if !ok {
			return nil, errors.INVARIANT_VIOLATION.New("asset %s has no owner", id).
				WithMetadata(errors.InvariantMetadata{AssetId: id.String()})
		}
		if seller == buyer {
			return nil, errors.ALREADY_OWNER.New("%s already owns asset %s", buyer, id).
				WithMetadata(errors.OwnerMetadata{AssetId: id.String(), Owner: seller, Caller: buyer})
		}
		if !asset.IsForSale() {
			return nil, errors.NOT_FOR_SALE.New("asset %s is not for sale", id).
				WithMetadata(errors.AssetMetadata{AssetId: id.String()})
		}
		if asset.Price > maxPrice {
			return nil, errors.PRICE_EXCEEDS_LIMIT.New(
				"price %d of asset %s exceeds limit %d", asset.Price, id, maxPrice,
			).WithMetadata(errors.PriceMetadata{
				AssetId: id.String(), Price: asset.Price, MaxPrice: maxPrice,
			})
		}
		if err := l.checkTransfer(ctx, seller, buyer, id); err != nil {
			return nil, err
		}

		if err := s.payments.Transfer(ctx, buyer, seller, asset.Price); err != nil {
			return nil, errors.PAYMENT_FAILED.Wrap(err).WithMetadata(errors.PaymentMetadata{
				From: buyer, To: seller, Amount: asset.Price,
			})
		}
		pending = &payment{buyer, seller, asset.Price}

		if err := l.transferFrom(ctx, seller, buyer, id); err != nil {
			cause := fmt.Errorf("transfer of paid asset %s failed: %w", id, err)
			if refundErr := refundPending(); refundErr != nil {
				cause = fmt.Errorf("%w, refund failed: %s", cause, refundErr)
			}
			return nil, errors.INVARIANT_VIOLATION.Wrap(cause).
				WithMetadata(errors.InvariantMetadata{AssetId: id.String()})
		}

		bought = domain.AssetBought{Buyer: buyer, Seller: seller, Id: id, Price: asset.Price}
		asset.Price = 0
		if err := l.state.Assets().Put(ctx, *asset); err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(err)
		}
		return []domain.Event{
			domain.AssetTransferred{From: seller, To: buyer, Id: id}, bought,
		}, nil
	}); err != nil {
		_ = refundPending()
		return err
	}

	log.Debugf("%s bought asset %s from %s for %d", buyer, id, bought.Seller, bought.Price)
	return nil
}

func (s *service) Deposit(
	ctx context.Context, account string, amount uint64,
) (err errors.Error) {
	ctx, span := tracer.Start(ctx, "Service.Deposit")
	defer func() { endSpan(span, err) }()

	if account == "" {
		return errors.INVALID_ARGUMENT.New("missing account")
	}
	if err := s.payments.Deposit(ctx, account, amount); err != nil {
		return errors.PAYMENT_FAILED.Wrap(err).
			WithMetadata(errors.PaymentMetadata{To: account, Amount: amount})
	}
	return nil
}

func (s *service) Balance(ctx context.Context, account string) (uint64, errors.Error) {
	if account == "" {
		return 0, errors.INVALID_ARGUMENT.New("missing account")
	}
	balance, err := s.payments.Balance(ctx, account)
	if err != nil {
		return 0, errors.INTERNAL_ERROR.Wrap(err)
	}
	return balance, nil
}

func (s *service) resolveCaller(ctx context.Context) (string, errors.Error) {
	caller, err := s.identity.Resolve(ctx)
	if err != nil {
		return "", errors.UNAUTHENTICATED.Wrap(err)
	}
	return caller, nil
}

// execute runs op in a ledger transaction and publishes the events it
// returns once the transaction committed.
func (s *service) execute(
	ctx context.Context, op func(context.Context, ledger) ([]domain.Event, errors.Error),
) errors.Error {
	var (
		events []domain.Event
		opErr  errors.Error
	)
	if err := s.repoManager.Ledger().RunInTx(
		ctx, func(ctx context.Context, state domain.LedgerState) error {
			evs, err := op(ctx, newLedger(state, s.maxEnumerationCount))
			opErr = err
			if err != nil {
				return err
			}
			events = evs
			return nil
		},
	); err != nil {
		if opErr == nil {
			opErr = errors.INTERNAL_ERROR.Wrap(
				fmt.Errorf("failed to commit ledger transaction: %w", err),
			)
		}
		if errors.INVARIANT_VIOLATION.Is(opErr) {
			opErr.Log().WithError(opErr).Error("ledger invariant violated")
		}
		return opErr
	}

	s.publish(ctx, events)
	return nil
}

func (s *service) publish(ctx context.Context, events []domain.Event) {
	if len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		log.WithError(err).Warnf("failed to publish %d ledger event(s)", len(events))
	}
}

func (s *service) refund(ctx context.Context, id domain.Hash, p payment) error {
	if err := s.payments.Transfer(ctx, p.seller, p.buyer, p.amount); err != nil {
		log.WithError(err).Errorf(
			"failed to refund %d from %s to %s for asset %s", p.amount, p.seller, p.buyer, id,
		)
		return err
	}
	log.Warnf("refunded %d from %s to %s for asset %s", p.amount, p.seller, p.buyer, id)
	return nil
}
