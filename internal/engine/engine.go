// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package engine implements the clone and incremental-translation engine.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/olegiv/lingoclone-go/internal/cms"
	"github.com/olegiv/lingoclone-go/internal/model"
	"github.com/olegiv/lingoclone-go/internal/policy"
	"github.com/olegiv/lingoclone-go/internal/reftree"
	"github.com/olegiv/lingoclone-go/internal/store"
	"github.com/olegiv/lingoclone-go/internal/translator"
)

// Options configures an Engine.
type Options struct {
	CMS             *cms.Client
	Translator      translator.Translator
	Store           store.RelationshipStore
	Tracker         *reftree.Tracker
	Policy          *policy.Policy
	StorageLocale   string
	RootContentType string // content type a first clone may start from
	Logger          *slog.Logger
}

// Engine orchestrates recursive clones and incremental updates. Operations
// on the same (source, target) pair are serialized by a per-relationship
// lock; that is the only cross-request ordering guarantee.
type Engine struct {
	cms             *cms.Client
	translator      translator.Translator
	store           store.RelationshipStore
	tracker         *reftree.Tracker
	policy          *policy.Policy
	storageLocale   string
	rootContentType string
	logger          *slog.Logger
	locks           *keyedLocks
}

// New creates an Engine.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := opts.Policy
	if p == nil {
		p = policy.DefaultPolicy()
	}
	return &Engine{
		cms:             opts.CMS,
		translator:      opts.Translator,
		store:           opts.Store,
		tracker:         opts.Tracker,
		policy:          p,
		storageLocale:   opts.StorageLocale,
		rootContentType: opts.RootContentType,
		logger:          logger,
		locks:           &keyedLocks{},
	}
}

// Policy returns the engine's policy tables.
func (e *Engine) Policy() *policy.Policy { return e.policy }

// CMS returns the engine's CMS client. Handlers use it to rescope a
// request to another space or environment.
func (e *Engine) CMS() *cms.Client { return e.cms }

// WithScope returns an engine bound to another space/environment, sharing
// the store, tracker policy and locks of the receiver.
func (e *Engine) WithScope(spaceID, envID string) *Engine {
	if (spaceID == "" || spaceID == e.cms.SpaceID()) &&
		(envID == "" || envID == e.cms.EnvironmentID()) {
		return e
	}
	clone := *e
	clone.cms = e.cms.WithScope(spaceID, envID)
	clone.tracker = reftree.New(clone.cms, e.policy, e.tracker.Config(), e.logger)
	return &clone
}

// keyedLocks serializes work per relationship id.
type keyedLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

// lock acquires the mutex for key and returns its unlock function.
func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	if k.m == nil {
		k.m = make(map[string]*sync.Mutex)
	}
	l, ok := k.m[key]
	if !ok {
		l = &sync.Mutex{}
		k.m[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// lockPair serializes on the relationship identity key.
func (e *Engine) lockPair(sourceID, targetID string) func() {
	return e.locks.lock(model.RelationshipID(sourceID, targetID))
}

// schemaCache is the per-request content-type cache.
type schemaCache struct {
	e *Engine
	m map[string]*cms.ContentType
}

func (e *Engine) newSchemaCache() *schemaCache {
	return &schemaCache{e: e, m: make(map[string]*cms.ContentType)}
}

func (c *schemaCache) get(ctx context.Context, id string) (*cms.ContentType, error) {
	if ct, ok := c.m[id]; ok {
		return ct, nil
	}
	ct, err := c.e.cms.GetContentType(ctx, id)
	if err != nil {
		return nil, err
	}
	c.m[id] = ct
	return ct, nil
}
