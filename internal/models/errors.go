package models

import "errors"

var ErrInvalidParam = errors.New("models: invalid parameter")
