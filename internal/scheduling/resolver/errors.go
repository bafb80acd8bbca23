package resolver

import "errors"

// ErrResourceBusy общий признак конфликта занятости; конкретика в *Conflict
var ErrResourceBusy = errors.New("resolver: resource is busy")
