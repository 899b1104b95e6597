package providers

import (
	"errors"
	"fmt"

	"github.com/gookit/validate"

	"snoozed/internal/structures"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (c *CnfValidator) Validate() error {
	sections := []struct {
		name  string
		value any
	}{
		{"webServer", &c.conf.WebServer},
		{"persistence", &c.conf.Persistence},
		{"wake", &c.conf.Wake},
		{"session", &c.conf.Session},
		{"logger", &c.conf.Logger},
	}
	for _, section := range sections {
		v := validate.Struct(section.value)
		if !v.Validate() {
			return fmt.Errorf("config section %s: %s", section.name, v.Errors.One())
		}
	}

	if c.conf.Persistence.Driver == "redis" && c.conf.Persistence.Redis.Addr == "" {
		return errors.New("config section persistence: redis.addr is required for the redis driver")
	}
	return nil
}
