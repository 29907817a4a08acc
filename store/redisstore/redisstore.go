// Package redisstore provides a canonical store.Backend kept in Redis.
//
// Each node is stored under three keys sharing the node prefix
// "<prefix>:node:<uuid>":
//
//	<node>            hash: parent, name, type, mixins
//	<node>:children   list of JSON child entries, in order
//	<node>:props      hash: expanded property name -> JSON property
//
// The root UUID lives at "<prefix>:root".
package redisstore

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/zero-day-ai/dataprovider/store"
)

// Options configures the Redis connection.
type Options struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379/0").
	URL string

	// Prefix namespaces all keys. Default: "dataprovider".
	Prefix string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration
}

// Store implements store.Backend and store.Writer on go-redis/v9.
type Store struct {
	client *redis.Client
	prefix string
}

type childRecord struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type propertyRecord struct {
	Type     string   `json:"type"`
	Multiple bool     `json:"multiple"`
	Values   []string `json:"values"`
}

// New connects to Redis and verifies the connection.
func New(opts Options) (*Store, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.Prefix == "" {
		opts.Prefix = "dataprovider"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 3 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 3 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client, prefix: opts.Prefix}, nil
}

func (s *Store) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

func (s *Store) nodeKey(id uuid.UUID) string {
	return s.key("node", id.String())
}

// Init creates a root node of rootType unless one exists, and returns the
// root UUID.
func (s *Store) Init(ctx context.Context, rootType store.Name) (uuid.UUID, error) {
	candidate := uuid.New()
	ok, err := s.client.SetNX(ctx, s.key("root"), candidate.String(), 0).Result()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to initialize root: %w", err)
	}
	if !ok {
		return s.Root(ctx)
	}

	root := store.NewNodeState(store.NewCanonicalID(candidate), rootType, nil, store.StatusExisting)
	if err := s.PutNode(ctx, root); err != nil {
		return uuid.Nil, err
	}
	return candidate, nil
}

// Root returns the root UUID.
func (s *Store) Root(ctx context.Context) (uuid.UUID, error) {
	raw, err := s.client.Get(ctx, s.key("root")).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, fmt.Errorf("%w: root not initialized", store.ErrNoSuchItem)
		}
		return uuid.Nil, fmt.Errorf("failed to read root: %w", err)
	}
	return uuid.Parse(raw)
}

// Node reads a node with its properties and child listing.
func (s *Store) Node(ctx context.Context, id uuid.UUID) (*store.NodeState, error) {
	key := s.nodeKey(id)

	pipe := s.client.Pipeline()
	fieldsCmd := pipe.HGetAll(ctx, key)
	childrenCmd := pipe.LRange(ctx, key+":children", 0, -1)
	propsCmd := pipe.HGetAll(ctx, key+":props")
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read node %s: %w", id, err)
	}

	fields := fieldsCmd.Val()
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: node %s", store.ErrNoSuchItem, id)
	}

	cid := store.NewCanonicalID(id)
	nodeType, err := store.ParseExpandedName(fields["type"])
	if err != nil {
		return nil, fmt.Errorf("%w: node %s type: %v", store.ErrItemState, id, err)
	}

	var parent store.NodeID
	if raw := fields["parent"]; raw != "" {
		pid, err := store.ParseCanonicalID(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: node %s parent: %v", store.ErrItemState, id, err)
		}
		parent = pid
	}

	ns := store.NewNodeState(cid, nodeType, parent, store.StatusExisting)
	if raw := fields["name"]; raw != "" {
		if ns.Name, err = store.ParseExpandedName(raw); err != nil {
			return nil, fmt.Errorf("%w: node %s name: %v", store.ErrItemState, id, err)
		}
	}
	if raw := fields["mixins"]; raw != "" {
		var mixins []string
		if err := json.Unmarshal([]byte(raw), &mixins); err != nil {
			return nil, fmt.Errorf("%w: node %s mixins: %v", store.ErrItemState, id, err)
		}
		for _, m := range mixins {
			name, err := store.ParseExpandedName(m)
			if err != nil {
				return nil, fmt.Errorf("%w: node %s mixin: %v", store.ErrItemState, id, err)
			}
			ns.Mixins = append(ns.Mixins, name)
		}
	}

	for _, raw := range childrenCmd.Val() {
		var rec childRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("%w: node %s child: %v", store.ErrItemState, id, err)
		}
		name, err := store.ParseExpandedName(rec.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: node %s child name: %v", store.ErrItemState, id, err)
		}
		childID, err := store.ParseCanonicalID(rec.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: node %s child id: %v", store.ErrItemState, id, err)
		}
		ns.AddChild(name, childID)
	}

	// Redis hashes are unordered; properties come back sorted by name.
	props := propsCmd.Val()
	names := make([]string, 0, len(props))
	for n := range props {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		p, err := decodeProperty(n, props[n], cid)
		if err != nil {
			return nil, fmt.Errorf("%w: node %s: %v", store.ErrItemState, id, err)
		}
		ns.SetProperty(p)
	}

	return ns, nil
}

// Property reads a single property of a node.
func (s *Store) Property(ctx context.Context, parent uuid.UUID, name store.Name) (*store.PropertyState, error) {
	raw, err := s.client.HGet(ctx, s.nodeKey(parent)+":props", name.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: property %s of %s", store.ErrNoSuchItem, name, parent)
		}
		return nil, fmt.Errorf("failed to read property %s of %s: %w", name, parent, err)
	}
	return decodeProperty(name.String(), raw, store.NewCanonicalID(parent))
}

// PutNode writes a node atomically, replacing any previous version.
func (s *Store) PutNode(ctx context.Context, state *store.NodeState) error {
	if state == nil || state.ID == nil {
		return fmt.Errorf("%w: node without id", store.ErrItemState)
	}
	key := s.nodeKey(state.ID.UUID())

	fields := map[string]string{
		"type": state.NodeType.String(),
		"name": state.Name.String(),
	}
	if state.ParentID != nil {
		fields["parent"] = state.ParentID.UUID().String()
	}
	if len(state.Mixins) > 0 {
		mixins := make([]string, len(state.Mixins))
		for i, m := range state.Mixins {
			mixins[i] = m.String()
		}
		data, err := json.Marshal(mixins)
		if err != nil {
			return fmt.Errorf("failed to marshal mixins: %w", err)
		}
		fields["mixins"] = string(data)
	}

	children := make([]interface{}, 0, len(state.Children()))
	for _, c := range state.Children() {
		data, err := json.Marshal(childRecord{Name: c.Name.String(), ID: c.ID.UUID().String()})
		if err != nil {
			return fmt.Errorf("failed to marshal child entry: %w", err)
		}
		children = append(children, string(data))
	}

	props := make([]interface{}, 0, 2*len(state.Properties()))
	for _, p := range state.Properties() {
		data, err := json.Marshal(propertyRecord{Type: string(p.Type), Multiple: p.Multiple, Values: p.Values})
		if err != nil {
			return fmt.Errorf("failed to marshal property %s: %w", p.Name, err)
		}
		props = append(props, p.Name.String(), string(data))
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key, key+":children", key+":props")
		args := make([]interface{}, 0, 2*len(fields))
		for k, v := range fields {
			args = append(args, k, v)
		}
		pipe.HSet(ctx, key, args...)
		if len(children) > 0 {
			pipe.RPush(ctx, key+":children", children...)
		}
		if len(props) > 0 {
			pipe.HSet(ctx, key+":props", props...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write node %s: %w", state.ID, err)
	}
	return nil
}

// RemoveNode deletes a node and removes it from its parent's listing.
func (s *Store) RemoveNode(ctx context.Context, id uuid.UUID) error {
	ns, err := s.Node(ctx, id)
	if err != nil {
		return err
	}

	key := s.nodeKey(id)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key, key+":children", key+":props")
		if ns.ParentID != nil {
			data, err := json.Marshal(childRecord{Name: ns.Name.String(), ID: id.String()})
			if err != nil {
				return err
			}
			pipe.LRem(ctx, s.nodeKey(ns.ParentID.UUID())+":children", 0, string(data))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove node %s: %w", id, err)
	}
	return nil
}

// AddNode creates a canonical child of parent and returns its UUID.
func (s *Store) AddNode(ctx context.Context, parent uuid.UUID, name, nodeType store.Name) (uuid.UUID, error) {
	exists, err := s.client.Exists(ctx, s.nodeKey(parent)).Result()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to check parent %s: %w", parent, err)
	}
	if exists == 0 {
		return uuid.Nil, fmt.Errorf("%w: parent %s", store.ErrNoSuchItem, parent)
	}

	id := uuid.New()
	ns := store.NewNodeState(store.NewCanonicalID(id), nodeType, store.NewCanonicalID(parent), store.StatusExisting)
	ns.Name = name
	if err := s.PutNode(ctx, ns); err != nil {
		return uuid.Nil, err
	}

	data, err := json.Marshal(childRecord{Name: name.String(), ID: id.String()})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal child entry: %w", err)
	}
	if err := s.client.RPush(ctx, s.nodeKey(parent)+":children", string(data)).Err(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to link child %s: %w", id, err)
	}
	return id, nil
}

// SetProperty sets a property on an existing node.
func (s *Store) SetProperty(ctx context.Context, id uuid.UUID, name store.Name, values ...string) error {
	exists, err := s.client.Exists(ctx, s.nodeKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check node %s: %w", id, err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: node %s", store.ErrNoSuchItem, id)
	}

	data, err := json.Marshal(propertyRecord{Type: string(store.TypeString), Multiple: len(values) != 1, Values: values})
	if err != nil {
		return fmt.Errorf("failed to marshal property %s: %w", name, err)
	}
	if err := s.client.HSet(ctx, s.nodeKey(id)+":props", name.String(), string(data)).Err(); err != nil {
		return fmt.Errorf("failed to set property %s of %s: %w", name, id, err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func decodeProperty(rawName, raw string, parent store.NodeID) (*store.PropertyState, error) {
	name, err := store.ParseExpandedName(rawName)
	if err != nil {
		return nil, fmt.Errorf("property name: %w", err)
	}
	var rec propertyRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("property %s: %w", name, err)
	}
	p := store.NewPropertyState(name, parent, store.StatusExisting)
	if rec.Type != "" {
		p.Type = store.ValueType(rec.Type)
	}
	p.Multiple = rec.Multiple
	p.Values = rec.Values
	return p, nil
}
