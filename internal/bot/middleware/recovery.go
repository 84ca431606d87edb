package middleware

import (
	"fmt"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// RecoverFromPanic вызывается через defer в каждой горутине обработки.
func RecoverFromPanic(component string) {
	if r := recover(); r != nil {
		log.WithFields(log.Fields{
			"component": component,
			"panic":     fmt.Sprintf("%v", r),
			"stack":     string(debug.Stack()),
		}).Error("ПАНИКА в обработчике, восстановлено")
	}
}
