package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

var ErrValidationError = errors.New("validation error")

func (c controller) generateTimeBasedId() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}

func (c controller) getQueryParam(r *http.Request, key string) (string, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return "", fmt.Errorf("%s was not provided", key)
	}

	return value, nil
}
