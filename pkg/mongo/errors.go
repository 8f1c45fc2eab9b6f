package mongo

import "errors"

var (
	ErrFailedToConnectToMongo = errors.New("mongo: connect failed after retries")
	ErrHealthcheckFailed      = errors.New("mongo: healthcheck ping failed")
)
