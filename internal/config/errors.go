package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("config webserver.port listening port can not be 0")

	// ErrTokenSecretsMissing is returned when either token secret is empty.
	ErrTokenSecretsMissing = errors.New("config token.accessSecret and token.refreshSecret must be set")

	// ErrTokenSecretsEqual is returned when access and refresh tokens would share a secret.
	ErrTokenSecretsEqual = errors.New("config token.accessSecret and token.refreshSecret must differ")

	// ErrAMQPURLMissing is returned when the amqp audit sink is enabled without a broker url.
	ErrAMQPURLMissing = errors.New("config audit.amqpURL is required for the amqp sink")
)
