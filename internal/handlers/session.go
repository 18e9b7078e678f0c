package handlers

import (
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/example/storefront/internal/registration"
)

// fiberSession adapts a fiber session to registration.Session.
type fiberSession struct {
	sess *session.Session
}

var _ registration.Session = fiberSession{}

func (s fiberSession) Get(key string) (string, bool) {
	v, ok := s.sess.Get(key).(string)
	return v, ok
}

func (s fiberSession) Set(key, value string) { s.sess.Set(key, value) }

func (s fiberSession) Delete(key string) { s.sess.Delete(key) }
