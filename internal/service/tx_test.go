package service

import "context"

type testTxRepos struct {
	projects ProjectRepositoryInterface
	uploads  UploadRepositoryInterface
	history  HistoryRepositoryInterface
}

func (t *testTxRepos) Projects() ProjectRepositoryInterface {
	return t.projects
}

func (t *testTxRepos) Uploads() UploadRepositoryInterface {
	return t.uploads
}

func (t *testTxRepos) History() HistoryRepositoryInterface {
	return t.history
}

type testTxRunner struct {
	repos  TxRepositories
	called int
	err    error
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called++
	if t.err != nil {
		return t.err
	}
	return fn(t.repos)
}
