package service

import "errors"

var (
	ErrBusy               = errors.New("operation already in progress")
	ErrStale              = errors.New("result discarded after screen change")
	ErrUploadFailed       = errors.New("error uploading model")
	ErrChatFailed         = errors.New("error processing chat message")
	ErrTryOnFailed        = errors.New("error processing try-on")
	ErrModelRequired      = errors.New("please upload a model image first")
	ErrItemNotFound       = errors.New("wardrobe item not found")
	ErrInvalidGarmentType = errors.New("invalid garment type")
	ErrNotConfirmed       = errors.New("removal not confirmed")
)
