package sviconfig

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/svidx/svi-fetch/pkg/log"
)

//go:embed schemas/*
var schemaFiles embed.FS

// loadSchema resolves an "embedFS://schemas/<file>" URL against the
// embedded schema directory; registered as a jsonschema.Loader in init
// under the lower-cased scheme, since url.Parse lower-cases schemes.
func loadSchema(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Host + u.Path)
}

func init() {
	jsonschema.Loaders["embedfs"] = loadSchema
}

// Validate checks r (a JSON document) against the embedded config
// schema.
func Validate(r io.Reader) error {
	s, err := jsonschema.Compile("embedFS://schemas/config.schema.json")
	if err != nil {
		return err
	}

	var v interface{}
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		log.Errorf("sviconfig.Validate() - failed to decode: %v", err)
		return err
	}

	if err := s.Validate(v); err != nil {
		return fmt.Errorf("SVICONFIG/VALIDATE > %#v", err)
	}
	return nil
}
