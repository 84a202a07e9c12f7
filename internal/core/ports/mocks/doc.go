// Package mocks provides gomock implementations of the core ports.
package mocks

//go:generate mockgen -destination=mock_stores.go -package=mocks chainlock/internal/core/ports TransactionStore
//go:generate mockgen -destination=mock_clients.go -package=mocks chainlock/internal/core/ports WalletClient,Notifier
//go:generate mockgen -destination=mock_services.go -package=mocks chainlock/internal/core/ports AuthorizationService
