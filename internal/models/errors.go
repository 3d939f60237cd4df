package models

import "errors"

// Таксономия доменных ошибок. Пакеты оборачивают их через
// fmt.Errorf("%s: %w", op, ErrX), HTTP-слой маппит через errors.Is.
var (
	// ErrConfiguration — не задан обязательный секрет/идентификатор.
	ErrConfiguration = errors.New("server misconfigured")
	// ErrValidation — отсутствуют или некорректны входные параметры.
	ErrValidation = errors.New("invalid argument")
	// ErrToken — токен не расшифровался или истёк (наружу не различаем).
	ErrToken = errors.New("invalid or expired token")
	// ErrUpstream — сбой транспорта, не-2xx или ошибки GraphQL у провайдера.
	ErrUpstream = errors.New("upstream failure")
	// ErrAuthenticationRequired — мутация без токена, до сетевого вызова.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrNotFound — репозиторий не найден.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited — клиент превысил частоту запросов.
	ErrRateLimited = errors.New("rate limited")
)
