// Package options contains flags and options for initializing the nyx server.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	nyx "github.com/kart-io/nyx/internal/nyx"
	"github.com/kart-io/nyx/pkg/infra/tracing"
	dbopts "github.com/kart-io/nyx/pkg/options/database"
	httpopts "github.com/kart-io/nyx/pkg/options/http"
	llmopts "github.com/kart-io/nyx/pkg/options/llm"
	logopts "github.com/kart-io/nyx/pkg/options/logger"
	milvusopts "github.com/kart-io/nyx/pkg/options/milvus"
	ragopts "github.com/kart-io/nyx/pkg/options/rag"
	redisopts "github.com/kart-io/nyx/pkg/options/redis"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// DatabaseOptions contains the relational store configuration.
	DatabaseOptions *dbopts.Options `json:"database" mapstructure:"database"`

	// RedisOptions contains the cache backend configuration.
	RedisOptions *redisopts.Options `json:"redis" mapstructure:"redis"`

	// MilvusOptions is used when rag.index is "milvus".
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// LLMOptions contains chat and embedding provider configuration.
	LLMOptions *llmopts.Options `json:"llm" mapstructure:"llm"`

	// RAGOptions contains chunking, retrieval and scrape configuration.
	RAGOptions *ragopts.Options `json:"rag" mapstructure:"rag"`

	// TracingOptions contains OpenTelemetry configuration.
	TracingOptions *tracing.Options `json:"tracing" mapstructure:"tracing"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	tracingOpts := tracing.NewOptions()
	tracingOpts.ServiceName = nyx.Name

	return &ServerOptions{
		HTTPOptions:     httpopts.NewOptions(),
		LogOptions:      logopts.NewOptions(),
		DatabaseOptions: dbopts.NewOptions(),
		RedisOptions:    redisopts.NewOptions(),
		MilvusOptions:   milvusopts.NewOptions(),
		LLMOptions:      llmopts.NewOptions(),
		RAGOptions:      ragopts.NewOptions(),
		TracingOptions:  tracingOpts,
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.DatabaseOptions.AddFlags(fss.FlagSet("database"))
	o.RedisOptions.AddFlags(fss.FlagSet("redis"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.LLMOptions.AddFlags(fss.FlagSet("llm"))
	o.RAGOptions.AddFlags(fss.FlagSet("rag"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))
	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.LLMOptions.Complete(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := o.RAGOptions.Complete(); err != nil {
		return fmt.Errorf("rag: %w", err)
	}
	if err := o.TracingOptions.Complete(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.DatabaseOptions.Validate()...)
	errs = append(errs, o.RedisOptions.Validate()...)
	errs = append(errs, o.LLMOptions.Validate()...)
	errs = append(errs, o.RAGOptions.Validate()...)
	if o.RAGOptions.Index == ragopts.IndexMilvus {
		errs = append(errs, o.MilvusOptions.Validate()...)
	}
	if o.RAGOptions.Index == ragopts.IndexPGVector && o.DatabaseOptions.Driver != dbopts.DriverPostgres {
		errs = append(errs, fmt.Errorf("rag.index=pgvector requires database.driver=postgres"))
	}
	errs = append(errs, o.TracingOptions.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Config builds a nyx.Config based on ServerOptions.
func (o *ServerOptions) Config() (*nyx.Config, error) {
	return &nyx.Config{
		HTTPOptions:     o.HTTPOptions,
		LogOptions:      o.LogOptions,
		DatabaseOptions: o.DatabaseOptions,
		RedisOptions:    o.RedisOptions,
		MilvusOptions:   o.MilvusOptions,
		LLMOptions:      o.LLMOptions,
		RAGOptions:      o.RAGOptions,
		TracingOptions:  o.TracingOptions,
	}, nil
}
