package firestore

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/interfaces"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const sessionsCollection = "sessions"

type sessionRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.SessionRepository = &sessionRepository{}

func newSessionRepository(client *firestore.Client) *sessionRepository {
	return &sessionRepository{
		client: client,
	}
}

// sessionDoc is the Firestore persistence model. The view-model is nested and
// schemaless enough that it is kept as a JSON blob next to the indexed fields.
type sessionDoc struct {
	ID        string    `firestore:"id"`
	Data      string    `firestore:"data"`
	CreatedAt time.Time `firestore:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

func (r *sessionRepository) collection() *firestore.CollectionRef {
	if r.collectionPrefix != "" {
		return r.client.Collection(r.collectionPrefix + "_" + sessionsCollection)
	}
	return r.client.Collection(sessionsCollection)
}

func (r *sessionRepository) Get(ctx context.Context, id model.SessionID) (*model.Session, error) {
	doc, err := r.collection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrSessionNotFound, "session does not exist", goerr.V(model.SessionKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get session", goerr.V(model.SessionKey, id))
	}

	var d sessionDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode session document", goerr.V(model.SessionKey, id))
	}

	var session model.Session
	if err := json.Unmarshal([]byte(d.Data), &session); err != nil {
		return nil, goerr.Wrap(err, "failed to decode session data", goerr.V(model.SessionKey, id))
	}
	session.ID = id
	return &session, nil
}

func (r *sessionRepository) Put(ctx context.Context, session *model.Session) error {
	if session == nil || session.ID == "" {
		return goerr.New("session ID is required")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return goerr.Wrap(err, "failed to encode session", goerr.V(model.SessionKey, session.ID))
	}

	doc := &sessionDoc{
		ID:        string(session.ID),
		Data:      string(data),
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
	if _, err := r.collection().Doc(string(session.ID)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put session", goerr.V(model.SessionKey, session.ID))
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, id model.SessionID) error {
	if _, err := r.collection().Doc(string(id)).Delete(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return goerr.Wrap(err, "failed to delete session", goerr.V(model.SessionKey, id))
	}
	return nil
}

func (r *sessionRepository) DeleteIdle(ctx context.Context, before time.Time) (int, error) {
	iter := r.collection().Where("updated_at", "<", before).Documents(ctx)
	defer iter.Stop()

	var refs []*firestore.DocumentRef
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, goerr.Wrap(err, "failed to iterate idle sessions")
		}
		refs = append(refs, doc.Ref)
	}

	if len(refs) == 0 {
		return 0, nil
	}

	bulkWriter := r.client.BulkWriter(ctx)
	defer bulkWriter.End()

	for _, ref := range refs {
		if _, err := bulkWriter.Delete(ref); err != nil {
			return 0, goerr.Wrap(err, "failed to add Delete operation to bulk writer")
		}
	}

	bulkWriter.Flush()

	return len(refs), nil
}
