package agency

import (
	"context"
	"fmt"

	"agency/internal/docstore"
)

// AdminLookup reports whether uid holds the admin role.
type AdminLookup func(ctx context.Context, uid string) (bool, error)

// StoreAdminLookup resolves the admin role from roles_admin/{uid} with a
// privileged read, so rule evaluation never recurses into itself.
func StoreAdminLookup(store docstore.Store) AdminLookup {
	return func(ctx context.Context, uid string) (bool, error) {
		roleRef := AdminRoleRef(uid)
		if roleRef == nil {
			return false, nil
		}
		snapshot, err := store.Get(docstore.Privileged(ctx), roleRef)
		if err != nil {
			return false, err
		}
		return snapshot.Exists, nil
	}
}

// Rules is the store's access policy:
//
//	talents      read by anyone (lists must filter approved==true unless admin);
//	             created by the owner unapproved, updated by the owner without
//	             touching approval, otherwise admin only
//	blogPosts    read by anyone, written by admins
//	messages     created by anyone as unread, otherwise admin only
//	users        owner or admin
//	roles_admin  owner may read their own role; no client writes
//	anything else is denied
func Rules(isAdmin AdminLookup) docstore.Rules {
	return func(ctx context.Context, req docstore.Request) error {
		admin := func() bool {
			if req.UID == "" {
				return false
			}
			ok, err := isAdmin(ctx, req.UID)
			return err == nil && ok
		}
		owner := req.UID != "" && req.UID == req.ID

		allowed := false
		switch req.Collection {
		case CollectionTalents:
			switch req.Operation {
			case docstore.OpGet:
				allowed = true
			case docstore.OpList:
				allowed = filtersApproved(req.Filters) || admin()
			case docstore.OpCreate:
				allowed = (owner && req.Data["approved"] == false) || admin()
			case docstore.OpUpdate:
				allowed = (owner && req.Data["approved"] == req.Existing["approved"]) || admin()
			case docstore.OpDelete:
				allowed = admin()
			}
		case CollectionBlogPosts:
			switch req.Operation {
			case docstore.OpGet, docstore.OpList:
				allowed = true
			default:
				allowed = admin()
			}
		case CollectionMessages:
			if req.Operation == docstore.OpCreate {
				allowed = req.Data["read"] == false
			} else {
				allowed = admin()
			}
		case CollectionUsers:
			switch req.Operation {
			case docstore.OpList, docstore.OpDelete:
				allowed = admin()
			default:
				allowed = owner || admin()
			}
		case CollectionAdminRoles:
			allowed = req.Operation == docstore.OpGet && owner
		}

		if !allowed {
			return fmt.Errorf("%w: %s %s/%s", docstore.ErrPermissionDenied, req.Operation, req.Collection, req.ID)
		}
		return nil
	}
}

func filtersApproved(filters []docstore.Filter) bool {
	for _, filter := range filters {
		if filter.Field == "approved" && filter.Value == true {
			return true
		}
	}
	return false
}

// OpenStore opens the badger store with Rules wired to its own admin roles.
func OpenStore(opts docstore.Options) (*docstore.Badger, error) {
	var store *docstore.Badger
	opts.Rules = Rules(func(ctx context.Context, uid string) (bool, error) {
		return StoreAdminLookup(store)(ctx, uid)
	})

	store, err := docstore.Open(opts)
	if err != nil {
		return nil, err
	}
	return store, nil
}
