/*------------------------------------------------------------------------------
* config.go : key/value option store and validated options projection
*
* Re-architects gnssgo/options.go's SysOpts table (name -> pointer to typed
* variable, with an enum/format tag) as a borrowed collaborator rather than
* a package-level table of global pointers (§9 design note): a Store holds
* raw string values by key, and Options is the validated, typed projection
* the core pipeline actually reads.
*-----------------------------------------------------------------------------*/
package config

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Store is a flat key/value option table, the reduced analogue of
// gnssgo's SysOpts map for the options this system actually has.
type Store struct {
	values map[string]string
}

// NewStore returns an empty option store.
func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

// Set records a raw string value for key.
func (s *Store) Set(key, value string) {
	s.values[key] = value
}

// String returns the raw value for key, or def if unset.
func (s *Store) String(key, def string) string {
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// Int parses the value for key as an integer, or returns def on error/unset.
func (s *Store) Int(key string, def int) int {
	v, ok := s.values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Float parses the value for key as a float64, or returns def on error/unset.
func (s *Store) Float(key string, def float64) float64 {
	v, ok := s.values[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// Bool parses the value for key as a boolean, or returns def on error/unset.
func (s *Store) Bool(key string, def bool) bool {
	v, ok := s.values[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Options is the validated, typed view of a Store that the conversion
// pipeline actually consumes.
type Options struct {
	RnxVersion   string  `validate:"required,oneof=2.10 3.02"`
	MinNumSats   int     `validate:"gte=0,lte=32"`
	ApplyBias    bool    `validate:""`
	OutDir       string  `validate:"required"`
	FilePrefix   string  `validate:"required,max=4"`
	ObsFilter    string  `validate:""`
	SatFilter    string  `validate:""`
	IntervalSecs float64 `validate:"gte=0"`
}

var validate = validator.New()

// Resolve projects a Store into a validated Options, returning an error
// that names every failing field if validation fails -- the fatal-to-the-
// call case of §7's error tiers (a bad invocation never starts a conversion).
func Resolve(s *Store) (Options, error) {
	opt := Options{
		RnxVersion:   s.String("rnxver", "3.02"),
		MinNumSats:   s.Int("minnsat", 4),
		ApplyBias:    s.Bool("applybias", true),
		OutDir:       s.String("outdir", "."),
		FilePrefix:   s.String("prefix", "STAT"),
		ObsFilter:    s.String("obsfilter", ""),
		SatFilter:    s.String("satfilter", ""),
		IntervalSecs: s.Float("interval", 0),
	}
	if err := validate.Struct(opt); err != nil {
		return Options{}, fmt.Errorf("config: invalid options: %w", err)
	}
	return opt, nil
}
