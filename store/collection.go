// Package store writes log documents to a MongoDB collection.
package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/orgoj/mongolog/formatter"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Defaults used when Options leave a field empty.
const (
	DefaultHost           = "localhost"
	DefaultDatabase       = "mongolog"
	DefaultConnectTimeout = 10 * time.Second
)

// Collection is the write side of a document store.
// Implementations must be safe for concurrent use.
type Collection interface {
	Insert(ctx context.Context, doc formatter.Document) error
}

// Options locates the target collection.
type Options struct {
	Host           string
	Port           int // 0 uses the driver default (27017)
	Database       string
	Collection     string
	ConnectTimeout time.Duration

	// DriverLog receives driver log messages when set.
	DriverLog options.LogSink
}

// URI returns the connection string for the configured endpoint.
func (o Options) URI() string {
	host := o.Host
	if host == "" {
		host = DefaultHost
	}
	if o.Port > 0 {
		return "mongodb://" + net.JoinHostPort(host, strconv.Itoa(o.Port))
	}
	if strings.Contains(host, ":") {
		return "mongodb://[" + host + "]"
	}
	return "mongodb://" + host
}

// Variable for the client factory to allow mocking in tests
var connectClient = func(opts *options.ClientOptions) (*mongo.Client, error) {
	return mongo.Connect(opts)
}

// MongoCollection is a Collection backed by the MongoDB driver.
type MongoCollection struct {
	coll  *mongo.Collection
	owned bool // client was opened by Dial and is closed by Close
}

// FromCollection wraps an already open collection handle. Close leaves its client open.
func FromCollection(coll *mongo.Collection) *MongoCollection {
	return &MongoCollection{coll: coll}
}

// Dial connects to the server described by opts, checks it is reachable and
// resolves the collection.
func Dial(ctx context.Context, opts Options) (*MongoCollection, error) {
	if opts.Collection == "" {
		return nil, errors.New("collection name is required")
	}
	database := opts.Database
	if database == "" {
		database = DefaultDatabase
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	clientOpts := options.Client().ApplyURI(opts.URI()).SetConnectTimeout(timeout)
	if opts.DriverLog != nil {
		clientOpts.SetLoggerOptions(options.Logger().
			SetSink(opts.DriverLog).
			SetComponentLevel(options.LogComponentAll, options.LogLevelInfo))
	}

	client, err := connectClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.URI(), err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to reach %s: %w", opts.URI(), err)
	}

	return &MongoCollection{
		coll:  client.Database(database).Collection(opts.Collection),
		owned: true,
	}, nil
}

// Insert stores doc as a single new document. Documents the server cannot
// represent are reported as ErrRejected; other failures are returned as-is.
func (c *MongoCollection) Insert(ctx context.Context, doc formatter.Document) error {
	raw, err := Encode(doc)
	if err != nil {
		return err
	}
	if _, err := c.coll.InsertOne(ctx, raw); err != nil {
		return classify(err)
	}
	return nil
}

// Collection returns the underlying driver handle.
func (c *MongoCollection) Collection() *mongo.Collection {
	return c.coll
}

// Close disconnects the client if it was opened by Dial.
func (c *MongoCollection) Close(ctx context.Context) error {
	if !c.owned {
		return nil
	}
	return c.coll.Database().Client().Disconnect(ctx)
}

// Encode marshals doc to BSON, rejecting values with no BSON form and
// documents over the server size limit.
func Encode(doc formatter.Document) (bson.Raw, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRejected, err)
	}
	if len(data) > MaxDocumentSize {
		return nil, fmt.Errorf("%w: document is %d bytes, limit is %d", ErrRejected, len(data), MaxDocumentSize)
	}
	return bson.Raw(data), nil
}

// Ensure MongoCollection implements the Collection interface.
var _ Collection = (*MongoCollection)(nil)
