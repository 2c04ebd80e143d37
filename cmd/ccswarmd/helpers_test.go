package main

import (
	"context"

	"github.com/kadirpekel/ccswarmd/pkg/session"
	"github.com/kadirpekel/ccswarmd/pkg/sessionmanager"
)

func testContext() context.Context {
	return context.Background()
}

func newTestManager() *sessionmanager.Manager {
	return sessionmanager.New()
}

func testSessionConfig() session.Config {
	return session.Config{}
}
