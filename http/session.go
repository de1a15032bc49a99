package http

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"floodrisk/ml"
	"floodrisk/survey"
)

const (
	ModeSurvey  = "survey"
	ModeNumeric = "numeric"
)

// FormInput is what the visitor last entered on the form.
type FormInput struct {
	Mode         string
	Survey       survey.Answers
	Features     ml.Sample
	Province     string
	Municipality string
}

// DefaultForm is the form state of a fresh session.
func DefaultForm() FormInput {
	province := survey.Provinces()[0]
	municipalities, _ := survey.Municipalities(province)
	return FormInput{
		Mode:         ModeSurvey,
		Survey:       survey.DefaultAnswers(),
		Province:     province,
		Municipality: municipalities[0],
	}
}

// Result is the outcome of the last form submission.
type Result struct {
	Label         string
	Probabilities []ml.ClassProbability
	Marker        *survey.Marker
	Error         string
}

// Session carries one visitor's form state between requests.
type Session struct {
	ID string

	mu   sync.Mutex
	form FormInput
	last *Result
}

func newSession() *Session {
	return &Session{ID: uuid.NewString(), form: DefaultForm()}
}

// Snapshot returns the current form and last result.
func (s *Session) Snapshot() (FormInput, *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form, s.last
}

// Record stores a submission and its outcome.
func (s *Session) Record(form FormInput, result *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = form
	s.last = result
}

// SessionStore keeps the most recently used sessions, evicting the oldest
// once the size limit is reached.
type SessionStore struct {
	cookieName string
	sessions   *lru.Cache[string, *Session]
}

// NewSessionStore keeps at most size sessions under the given cookie name.
func NewSessionStore(size int, cookieName string) (*SessionStore, error) {
	sessions, err := lru.New[string, *Session](size)
	if err != nil {
		return nil, err
	}
	if cookieName == "" {
		cookieName = "floodrisk_session"
	}
	return &SessionStore{cookieName: cookieName, sessions: sessions}, nil
}

// Load returns the session named by the request cookie, starting a new one
// and setting its cookie when there is none or it has been evicted.
func (st *SessionStore) Load(w http.ResponseWriter, r *http.Request) *Session {
	if cookie, err := r.Cookie(st.cookieName); err == nil {
		if session, ok := st.sessions.Get(cookie.Value); ok {
			return session
		}
	}
	session := newSession()
	st.sessions.Add(session.ID, session)
	http.SetCookie(w, &http.Cookie{
		Name:     st.cookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return session
}

// Len is the number of live sessions.
func (st *SessionStore) Len() int {
	return st.sessions.Len()
}
