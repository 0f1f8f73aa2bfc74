package cache

import "errors"

var ErrStore = errors.New("stage cache error")
