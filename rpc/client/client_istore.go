package client

import (
	"context"

	"github.com/vivskv/vivs/lib/store"
)

// NewRPCStore returns a store.IStore backed by a remote cluster. Every call is
// a request through c, redirects included. Stores obtained this way have no
// local clock: expiry is decided by the server.
func NewRPCStore(c *Client) store.IStore {
	return &rpcStore{client: c}
}

type rpcStore struct {
	client *Client
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (s *rpcStore) Set(key string, value []byte) error {
	return s.client.Set(context.Background(), key, string(value))
}

func (s *rpcStore) SetE(key string, value []byte, expireIn uint64) error {
	return s.client.SetWithTTL(context.Background(), key, string(value), expireIn)
}

func (s *rpcStore) Get(key string) ([]byte, bool, error) {
	return s.client.Get(context.Background(), key)
}

func (s *rpcStore) Delete(key string) (bool, error) {
	return s.client.Delete(context.Background(), key)
}

func (s *rpcStore) TTL(key string) (uint64, error) {
	return s.client.TTL(context.Background(), key)
}

func (s *rpcStore) GetInfo() (store.Info, error) {
	return store.Info{}, store.NewError(store.RetCInvalidOperation, "store info is not available over the network")
}
