package services

import "errors"

var (
	ErrSourceNotFound = errors.New("source not found")
	ErrDownloadFailed = errors.New("download failed")
)
