package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации входа (отклоняются до обращения к хранилищу)
	ErrValidationFailed = errors.New("validation failed")
	ErrEmptyRoster      = errors.New("roster batch is empty after cleaning")

	// Ошибки конфигурации стола
	ErrTableInvalidConfig = errors.New("invalid table configuration")

	// Ошибки журнала раундов
	ErrInvalidRound    = errors.New("invalid round entry")
	ErrInvalidScore    = errors.New("invalid score")
	ErrMissingWinner   = errors.New("round winner is missing")
	ErrAmbiguousWinner = errors.New("cannot infer a single winner from the score distribution")

	// Ростер
	ErrRosterUnavailable        = errors.New("roster source unavailable")
	ErrRosterLookupInconsistent = errors.New("player lookup still inconsistent after conflict retry")

	// Аутентификация и авторизация
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
)
