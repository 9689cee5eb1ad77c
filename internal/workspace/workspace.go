// Package workspace holds the collections of one logged-in session. Each
// session gets its own isolated mirrors; nothing is shared across sessions.
package workspace

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/EmpoweredVote/academic-portal/internal/api"
	"github.com/EmpoweredVote/academic-portal/internal/reload"
	"github.com/EmpoweredVote/academic-portal/internal/remote"
	"github.com/EmpoweredVote/academic-portal/internal/session"
)

// SubjectScope selects the subjects of one career and semester. Zero fields
// mean "any".
type SubjectScope struct {
	CareerID int
	Semester int
}

// Options tune every workspace a Hub creates.
type Options struct {
	MessageTTL    time.Duration
	ReloadFloor   time.Duration
	ReloadTimeout time.Duration
	Clock         reload.Clock
}

// Workspace is the per-session set of collections.
type Workspace struct {
	Session session.Session
	Client  *api.Client

	Users   *remote.Collection[api.User]
	Roles   *remote.Collection[api.Role]
	Reports *remote.Collection[api.Report]
	Logs    *remote.Collection[api.LogEntry]
	Careers *remote.Collection[api.Career]

	Subjects  *remote.Cache[SubjectScope, api.Subject]
	Resources *remote.Cache[int, api.Resource]
	Comments  *remote.Cache[int, api.Comment]
	Reactions *remote.Cache[int, api.Reaction]

	// subjectReload refreshes the resources of the selected subject once the
	// selection settles.
	subjectReload *reload.Reloader[int]
	// careersReload keeps catalog refreshes at least ReloadFloor apart.
	careersReload *reload.Reloader[struct{}]

	timeout time.Duration
}

func key(id int) string { return strconv.Itoa(id) }

// New builds an empty workspace for s, talking to the backend through client.
func New(s session.Session, client *api.Client, opts Options) *Workspace {
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = 15 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = reload.SystemClock
	}
	var copts []remote.Option
	if opts.MessageTTL > 0 {
		copts = append(copts, remote.WithMessageTTL(opts.MessageTTL))
	}

	w := &Workspace{Session: s, Client: client, timeout: opts.ReloadTimeout}

	w.Users = remote.New(remote.Source[api.User]{
		Name: "usuarios",
		List: client.ListUsers,
		Delete: func(ctx context.Context, k string) error {
			id, err := strconv.Atoi(k)
			if err != nil {
				return err
			}
			return client.DeleteUser(ctx, id)
		},
		Key: func(u api.User) string { return key(u.ID) },
	}, copts...)

	w.Roles = remote.New(remote.Source[api.Role]{
		Name:   "roles",
		List:   client.ListRoles,
		Create: client.CreateRole,
		Update: client.UpdateRole,
		Delete: deleteByID(client.DeleteRole),
		Key:    func(r api.Role) string { return key(r.ID) },
	}, copts...)

	w.Reports = remote.New(remote.Source[api.Report]{
		Name:   "reportes",
		List:   client.ListReports,
		Create: client.CreateReport,
		Delete: deleteByID(client.DeleteReport),
		Key:    func(r api.Report) string { return key(r.ID) },
	}, copts...)

	w.Logs = remote.New(remote.Source[api.LogEntry]{
		Name: "logs",
		List: client.ListLogs,
		Key:  func(l api.LogEntry) string { return key(l.ID) },
	}, copts...)

	w.Careers = remote.New(remote.Source[api.Career]{
		Name: "carreras",
		List: client.ListCareers,
		Key:  func(c api.Career) string { return key(c.ID) },
	}, copts...)

	w.Subjects = remote.NewCache(func(scope SubjectScope) *remote.Collection[api.Subject] {
		return remote.New(remote.Source[api.Subject]{
			Name: "materias",
			List: func(ctx context.Context) ([]api.Subject, error) {
				return client.ListSubjects(ctx, scope.CareerID, scope.Semester)
			},
			Key: func(s api.Subject) string { return key(s.ID) },
		}, copts...)
	})

	w.Resources = remote.NewCache(func(subjectID int) *remote.Collection[api.Resource] {
		return remote.New(remote.Source[api.Resource]{
			Name: "recursos",
			List: func(ctx context.Context) ([]api.Resource, error) {
				return client.ListResources(ctx, subjectID)
			},
			Create: client.CreateResource,
			Update: client.UpdateResource,
			Delete: deleteByID(client.DeleteResource),
			Key:    func(r api.Resource) string { return key(r.ID) },
		}, copts...)
	})

	w.Comments = remote.NewCache(func(resourceID int) *remote.Collection[api.Comment] {
		return remote.New(remote.Source[api.Comment]{
			Name: "comentarios",
			List: func(ctx context.Context) ([]api.Comment, error) {
				return client.ListComments(ctx, resourceID)
			},
			Create: client.CreateComment,
			Update: client.UpdateComment,
			Delete: deleteByID(client.DeleteComment),
			Key:    func(c api.Comment) string { return key(c.ID) },
		}, copts...)
	})

	w.Reactions = remote.NewCache(func(resourceID int) *remote.Collection[api.Reaction] {
		return remote.New(remote.Source[api.Reaction]{
			Name: "likes",
			List: func(ctx context.Context) ([]api.Reaction, error) {
				return client.ListReactions(ctx, resourceID)
			},
			Key: func(r api.Reaction) string { return key(r.UserID) },
		}, copts...)
	})

	w.subjectReload = reload.NewWithClock(opts.ReloadFloor, func(subjectID int) {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		if err := w.Resources.Get(subjectID).Reload(ctx); err != nil {
			log.Printf("[workspace] %s: background reload of subject %d: %v", s.ID, subjectID, err)
		}
	}, opts.Clock)
	w.subjectReload.Start(0, false)

	w.careersReload = reload.NewWithClock(opts.ReloadFloor, func(struct{}) {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		if err := w.Careers.Reload(ctx); err != nil {
			log.Printf("[workspace] %s: careers reload: %v", s.ID, err)
		}
	}, opts.Clock)
	w.careersReload.Start(struct{}{}, false)

	return w
}

func deleteByID(del func(ctx context.Context, id int) error) func(ctx context.Context, k string) error {
	return func(ctx context.Context, k string) error {
		id, err := strconv.Atoi(k)
		if err != nil {
			return err
		}
		return del(ctx, id)
	}
}

// SelectSubject records the subject the user is browsing. The first visit
// loads synchronously; revisiting a subject serves the cached mirror and
// schedules a background refresh once the selection settles.
func (w *Workspace) SelectSubject(ctx context.Context, subjectID int, force bool) (*remote.Collection[api.Resource], error) {
	col := w.Resources.Get(subjectID)
	if force {
		w.subjectReload.Notify(subjectID)
		w.subjectReload.Force()
		return col, nil
	}
	if !col.Snapshot().Loaded {
		err := col.Reload(ctx)
		w.subjectReload.Reset(subjectID)
		return col, err
	}
	w.subjectReload.Notify(subjectID)
	return col, nil
}

// RefreshCareers reloads the career list, at most once per reload floor.
func (w *Workspace) RefreshCareers(ctx context.Context) error {
	if !w.Careers.Snapshot().Loaded {
		return w.Careers.Reload(ctx)
	}
	w.careersReload.Request()
	return nil
}

// Close stops background reloads and releases every collection.
func (w *Workspace) Close() {
	w.subjectReload.Stop()
	w.careersReload.Stop()

	w.Users.Close()
	w.Roles.Close()
	w.Reports.Close()
	w.Logs.Close()
	w.Careers.Close()
	w.Subjects.Clear()
	w.Resources.Clear()
	w.Comments.Clear()
	w.Reactions.Clear()
}
