package gitserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// History returns the commits touching q.ServerPath, newest first.
// A window covers the commits after From up to and including To; a window
// starting before the first commit covers everything up to To. Without
// From only the newest matching commit at To is returned.
func (s *Server) History(ctx context.Context, q domain.HistoryQuery) ([]domain.ChangeSet, error) {
	if _, ok := repoPath(q.ServerPath); !ok {
		return nil, fmt.Errorf("%w: server path %q", domain.ErrConfigInvalid, q.ServerPath)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	to, err := s.resolve(q.To)
	if err != nil {
		return nil, err
	}
	stop := plumbing.ZeroHash
	if q.From != nil {
		from, fromErr := s.resolve(q.From)
		switch {
		case fromErr == nil:
			stop = from.Hash
		case errors.Is(fromErr, domain.ErrNoVersionAtTime):
			// Window opens before the first commit
		default:
			return nil, fromErr
		}
	}

	iter, err := s.repo.Log(&git.LogOptions{From: to.Hash, Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("walk history: %w", err)
	}
	defer iter.Close()

	var changes []domain.ChangeSet
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.Hash == stop {
			return storer.ErrStop
		}
		items, itemsErr := changedItems(c, q.ServerPath)
		if itemsErr != nil {
			return itemsErr
		}
		if len(items) == 0 {
			return nil
		}
		changes = append(changes, changeSet(c, items))
		if q.From == nil {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return domain.FilterExcluded(changes, q.Excluded), nil
}

func changeSet(c *object.Commit, items []domain.ChangeItem) domain.ChangeSet {
	user, dom := domain.ParseUser(c.Author.Name)
	return domain.ChangeSet{
		Date:    c.Committer.When,
		Version: c.Hash.String(),
		User:    user,
		Domain:  dom,
		Comment: strings.TrimSpace(c.Message),
		Items:   items,
	}
}

// changedItems returns the files under root the commit changed relative to
// its first parent. A root commit adds all of its files.
func changedItems(c *object.Commit, root string) ([]domain.ChangeItem, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("get tree of %s: %w", c.Hash, err)
	}

	var items []domain.ChangeItem
	add := func(name string, action domain.ChangeAction) {
		p := serverPath(name)
		if domain.IsUnderServerPath(p, root) {
			items = append(items, domain.ChangeItem{Path: p, Action: action})
		}
	}

	if c.NumParents() == 0 {
		files := tree.Files()
		defer files.Close()
		err := files.ForEach(func(f *object.File) error {
			add(f.Name, domain.ActionAdd)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("list files of %s: %w", c.Hash, err)
		}
		return items, nil
	}

	parent, err := c.Parent(0)
	if err != nil {
		return nil, fmt.Errorf("get parent of %s: %w", c.Hash, err)
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("get tree of %s: %w", parent.Hash, err)
	}
	diff, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, fmt.Errorf("diff %s: %w", c.Hash, err)
	}
	for _, ch := range diff {
		action, actionErr := ch.Action()
		if actionErr != nil {
			return nil, fmt.Errorf("diff %s: %w", c.Hash, actionErr)
		}
		switch action {
		case merkletrie.Insert:
			add(ch.To.Name, domain.ActionAdd)
		case merkletrie.Delete:
			add(ch.From.Name, domain.ActionDelete)
		case merkletrie.Modify:
			add(ch.To.Name, domain.ActionEdit)
		}
	}
	return items, nil
}
