package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/KingdomFirst/Bulldozer-sub001/importer/db"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/index"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/key"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/kinds"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/progress"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/stream"
	"github.com/KingdomFirst/Bulldozer-sub001/target"
	"github.com/KingdomFirst/Bulldozer-sub001/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// verboseEvery is the number of chunks between detailed progress lines
const verboseEvery = 10

var errNoEntity = errors.New("transform returned no entity")

type Options struct {
	// Prefix namespaces the identity keys of one import instance
	Prefix string
	// ChunkSize is the number of units written per batch
	ChunkSize int
	// Workers transform the units of one chunk concurrently
	Workers int
	// DisableAuditing skips writing audit rows
	DisableAuditing bool
	// RunID tags audit rows; generated when blank
	RunID string
}

// Importer imports the units of one entity kind from a source, one chunk at a time.
// Chunks are processed strictly in order; only the transforms of a chunk run concurrently.
type Importer struct {
	store    target.Store
	registry *kinds.Registry
	kind     *kinds.Kind
	reporter progress.Reporter
	opts     Options
	resolver key.Resolver

	index  *index.Index
	deps   *index.Dependencies
	tc     *kinds.Context
	seen   map[string]bool
	unique map[string]map[string]bool
}

// pendingLink is a committed entity whose parent was not known when it was written
type pendingLink struct {
	key       string
	parentKey string
}

// unit is one group of the chunk with the outcome of its transform
type unit struct {
	group  *stream.Group
	key    string
	entity *db.Entity
	err    error
}

func NewImporter(store target.Store, registry *kinds.Registry, kind *kinds.Kind, reporter progress.Reporter, opts Options) (*Importer, error) {
	resolver := key.NewResolver(opts.Prefix)
	if resolver.Prefix == "" {
		return nil, db.ErrMissingPrefix
	}
	if strings.Contains(resolver.Prefix, key.Separator) {
		return nil, fmt.Errorf("%w: %q", db.ErrInvalidPrefix, resolver.Prefix)
	}
	if opts.ChunkSize < 1 {
		return nil, fmt.Errorf("chunk size of %s must be a positive number", kind.Name)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Importer{
		store:    store,
		registry: registry,
		kind:     kind,
		reporter: reporter,
		opts:     opts,
		resolver: resolver,
	}, nil
}

func (imp *Importer) RunID() string {
	return imp.opts.RunID
}

// Init loads the existing-record index of the kind and the dependency maps it requires
func (imp *Importer) Init(ctx context.Context) error {
	if err := imp.store.EnsureSchema(ctx, imp.kind.Spec); err != nil {
		return err
	}
	idx, err := index.Load(ctx, imp.store, imp.kind.Spec, imp.resolver.Prefix)
	if err != nil {
		return err
	}
	deps := index.NewDependencies()
	for _, name := range imp.kind.Requires {
		required, err := imp.registry.Get(name)
		if err != nil {
			return err
		}
		if err := deps.Load(ctx, imp.store, name, required.Spec, imp.resolver.Prefix); err != nil {
			return err
		}
	}
	if !deps.Loaded(imp.kind.Name) {
		deps.Set(imp.kind.Name, index.NewDependencyMap(nil))
	}
	imp.index = idx
	imp.deps = deps
	imp.tc = kinds.NewContext(imp.resolver, deps)
	imp.seen = make(map[string]bool)
	imp.unique = make(map[string]map[string]bool, len(imp.kind.Unique))
	for _, col := range imp.kind.Unique {
		imp.unique[col] = make(map[string]bool)
	}
	logrus.WithFields(logrus.Fields{
		"kind":     imp.kind.Name,
		"existing": idx.Len(),
		"requires": imp.kind.Requires,
	}).Infoln("importer initialized")
	return nil
}

// Run imports every unit of src. Cancellation is honored between chunks: committed batches stay,
// and running again with the same prefix resumes where the run stopped.
func (imp *Importer) Run(ctx context.Context, src stream.Source) (*progress.Counts, error) {
	start := time.Now()
	counts := &progress.Counts{Kind: imp.kind.Name}
	if err := imp.Init(ctx); err != nil {
		return counts, err
	}

	var it stream.Iterator
	if imp.kind.Grouped {
		it = stream.NewGrouper(src, imp.kind.KeyColumn)
	} else {
		it = stream.Rows(src, imp.kind.KeyColumn)
	}
	chunker, err := stream.NewChunker(it, imp.opts.ChunkSize)
	if err != nil {
		return counts, err
	}
	total := 0
	if sized, ok := src.(stream.Sized); ok {
		total = sized.Total()
	}
	read := progress.NewCounter()

	var pending []pendingLink
	for chunkNum := 1; ; chunkNum++ {
		if err := ctx.Err(); err != nil {
			return counts, fmt.Errorf("import of %s stopped after %d units: %w", imp.kind.Name, counts.Processed, err)
		}
		chunk, err := chunker.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return counts, fmt.Errorf("could not read %s source: %w", imp.kind.Name, err)
		}
		deferred, err := imp.processChunk(ctx, chunk, counts)
		if err != nil {
			return counts, err
		}
		pending = append(pending, deferred...)

		if err := read.Update(chunker.Records()); err != nil {
			return counts, err
		}
		imp.heartbeat(chunkNum, read.Percent(total), counts)
	}

	if err := imp.link(ctx, pending, counts); err != nil {
		return counts, err
	}
	imp.reporter.Report(100, counts.String())
	logrus.WithFields(logrus.Fields{
		"kind": imp.kind.Name,
		"took": time.Since(start).String(),
	}).Infoln("import finished")
	return counts, nil
}

func (imp *Importer) heartbeat(chunkNum int, percent int, counts *progress.Counts) {
	if chunkNum%verboseEvery == 0 {
		imp.reporter.Report(percent, counts.String())
		return
	}
	imp.reporter.Report(percent, fmt.Sprintf("%s: processed %d", imp.kind.Name, counts.Processed))
}

// processChunk filters, transforms and submits one chunk. It returns the entities whose parent
// must be linked once the whole source has been imported.
func (imp *Importer) processChunk(ctx context.Context, chunk []*stream.Group, counts *progress.Counts) ([]pendingLink, error) {
	units := make([]*unit, 0, len(chunk))
	for _, g := range chunk {
		counts.Processed++
		k, keyed := imp.resolver.Resolve(g.NaturalID)
		if keyed {
			if imp.index.Contains(k) {
				counts.SkippedDuplicate++
				continue
			}
			if imp.seen[k] {
				imp.skip(db.Duplicate(imp.kind.KeyColumn, g.NaturalID), counts)
				continue
			}
			imp.seen[k] = true
		}
		units = append(units, &unit{group: g, key: k})
	}

	if err := imp.transformAll(ctx, units); err != nil {
		return nil, err
	}

	batch := make([]*db.Entity, 0, len(units))
	for _, u := range units {
		if u.err != nil {
			var rowErr *db.RowError
			if errors.As(u.err, &rowErr) {
				imp.skip(rowErr, counts)
				continue
			}
			return nil, fmt.Errorf("could not transform %s %q at line %d: %w", imp.kind.Name, u.group.NaturalID, u.group.First().Line, u.err)
		}
		if u.key == "" && u.entity.HasChildren() {
			// child rows are attached through the parent's key
			imp.skip(db.InvalidValue(imp.kind.KeyColumn, fmt.Sprintf("line %d", u.group.First().Line)), counts)
			continue
		}
		if rowErr := imp.claimUnique(u.entity); rowErr != nil {
			imp.skip(rowErr, counts)
			continue
		}
		u.entity.Key = u.key
		u.entity.NaturalID = u.group.NaturalID
		batch = append(batch, u.entity)
	}
	if len(batch) == 0 {
		return nil, nil
	}

	refs, err := imp.store.Write(ctx, imp.kind.Spec, batch, imp.resolver.Prefix, target.WriteOptions{
		RunID:           imp.opts.RunID,
		DisableAuditing: imp.opts.DisableAuditing,
	})
	if err != nil {
		return nil, fmt.Errorf("could not write %s batch: %w", imp.kind.Name, err)
	}
	for k, ref := range refs {
		imp.index.Insert(k, ref.ID)
	}
	imp.deps.For(imp.kind.Name).RegisterAll(refs)
	counts.Imported += len(batch)

	var pending []pendingLink
	for _, e := range batch {
		if e.ParentKey == "" {
			continue
		}
		if e.Key == "" {
			// without a key the entity cannot be found again to link it
			_, parentID, _ := key.Split(e.ParentKey)
			rowErr := db.InvalidValue(imp.kind.ParentSource, parentID)
			imp.reporter.LogError(rowErr.Category, rowErr.Message)
			continue
		}
		pending = append(pending, pendingLink{key: e.Key, parentKey: e.ParentKey})
	}
	return pending, nil
}

// transformAll runs the transforms of a chunk on the configured number of workers.
// Outcomes stay attached to their unit so the merge keeps input order.
func (imp *Importer) transformAll(ctx context.Context, units []*unit) error {
	workers := imp.opts.Workers
	if workers > len(units) {
		workers = len(units)
	}
	if workers <= 1 {
		for _, u := range units {
			u.entity, u.err = imp.transform(u.group)
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan *unit)
	go func() {
		defer close(jobs)
		for _, u := range units {
			jobs <- u
		}
	}()

	errChans := make([]<-chan error, workers)
	for w := 0; w < workers; w++ {
		errChan := make(chan error)
		errChans[w] = errChan
		go func() {
			defer close(errChan)
			for u := range jobs {
				u.entity, u.err = imp.transform(u.group)
			}
		}()
	}
	return utils.WaitForPipeline(ctx, errChans...)
}

func (imp *Importer) transform(g *stream.Group) (e *db.Entity, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transform panicked: %v", r)
		}
	}()
	e, err = imp.kind.Transform(imp.tc, g)
	if err == nil && e == nil {
		err = errNoEntity
	}
	return e, err
}

// claimUnique records the unique values of e, rejecting it when one was already claimed in this run
func (imp *Importer) claimUnique(e *db.Entity) *db.RowError {
	values := make(map[string]string, len(imp.unique))
	for col, claimed := range imp.unique {
		v, ok := e.Values[col]
		if !ok || v == nil {
			continue
		}
		s := fmt.Sprint(v)
		if claimed[s] {
			return db.Duplicate(col, s)
		}
		values[col] = s
	}
	for col, s := range values {
		imp.unique[col][s] = true
	}
	return nil
}

func (imp *Importer) skip(rowErr *db.RowError, counts *progress.Counts) {
	imp.reporter.LogError(rowErr.Category, rowErr.Message)
	counts.SkippedInvalid++
}

// link sets the self reference of every pending entity in one update. A parent that never
// appeared in the source leaves the reference NULL.
func (imp *Importer) link(ctx context.Context, pending []pendingLink, counts *progress.Counts) error {
	if len(pending) == 0 {
		return nil
	}
	own := imp.deps.For(imp.kind.Name)
	links := make([]db.Link, 0, len(pending))
	for _, p := range pending {
		child, childOK := own.Resolve(p.key)
		parent, parentOK := own.Resolve(p.parentKey)
		if !childOK || !parentOK {
			_, parentID, _ := key.Split(p.parentKey)
			rowErr := db.MissingDependency(imp.kind.ParentSource, parentID)
			imp.reporter.LogError(rowErr.Category, rowErr.Message)
			continue
		}
		links = append(links, db.Link{ID: child.ID, ParentID: parent.ID})
	}
	if len(links) == 0 {
		return nil
	}
	if err := imp.store.Link(ctx, imp.kind.Spec, imp.kind.ParentColumn, links); err != nil {
		return fmt.Errorf("could not link %s parents: %w", imp.kind.Name, err)
	}
	counts.Linked = len(links)
	logrus.WithFields(logrus.Fields{"kind": imp.kind.Name, "links": len(links)}).Infoln("second pass linked parents")
	return nil
}
