package ports

import "github.com/arkade-os/kittyd/internal/core/domain"

type RepoManager interface {
	Ledger() domain.LedgerRepository
	Close()
}
