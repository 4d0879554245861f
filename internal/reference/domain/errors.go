package domain

import "errors"

var (
	ErrUnknownItemType = errors.New("unknown_item_type")
	ErrInvalidZipCode  = errors.New("invalid_zip_code")
)
