package service

import "context"

// TxRepositories are the repositories an import writes through, all bound
// to one transaction
type TxRepositories interface {
	Projects() ProjectRepositoryInterface
	Uploads() UploadRepositoryInterface
	History() HistoryRepositoryInterface
}

// TxRunner runs fn in a transaction that commits when fn returns nil and
// rolls back otherwise
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
