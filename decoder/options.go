package decoder

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/arloliu/irstream/errs"
	"github.com/arloliu/irstream/internal/options"
)

// Option configures a Decoder.
type Option = options.Option[*Decoder]

// WithAllowIncompleteStream makes a stream that ends inside a record finish with io.EOF
// instead of errs.ErrStreamExhausted.
func WithAllowIncompleteStream(allow bool) Option {
	return options.NoError(func(d *Decoder) {
		d.allowIncomplete = allow
	})
}

// WithCacheEncoded keeps a copy of each record's encoded bytes on the record.
func WithCacheEncoded(cache bool) Option {
	return options.NoError(func(d *Decoder) {
		d.cacheEncoded = cache
	})
}

// WithBufferCapacity sets the initial capacity of the decode buffer.
func WithBufferCapacity(capacity int) Option {
	return options.New(func(d *Decoder) error {
		if capacity <= 0 {
			return fmt.Errorf("%w: buffer capacity must be positive, got %d", errs.ErrInvalidArgument, capacity)
		}
		d.capacity = capacity

		return nil
	})
}

// WithLogger sets the logger; nil keeps the no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return options.NoError(func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	})
}

func applyOptions(d *Decoder, opts ...Option) error {
	return options.Apply(d, opts...)
}
