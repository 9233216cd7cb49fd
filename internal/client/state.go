package client

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"go.etcd.io/bbolt"
)

const (
	identityBucket = "identity"
	votesBucket    = "votes"
	userIDKey      = "user_id"

	userIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	userIDLength   = 9
)

// LocalState persists the soft identity and the per-poll voted markers of
// one client installation.
type LocalState struct {
	db *bbolt.DB
}

func OpenLocalState(path string) (*LocalState, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("state path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{identityBucket, votesBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &LocalState{db: db}, nil
}

func (s *LocalState) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// UserID returns the stored identity, generating and storing one on first
// use. The identity is unverified.
func (s *LocalState) UserID() (string, error) {
	var userID string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(identityBucket))
		if existing := bucket.Get([]byte(userIDKey)); existing != nil {
			userID = string(existing)
			return nil
		}

		generated, err := newUserID(time.Now())
		if err != nil {
			return err
		}
		userID = generated
		return bucket.Put([]byte(userIDKey), []byte(userID))
	})
	if err != nil {
		return "", fmt.Errorf("load user id: %w", err)
	}
	return userID, nil
}

// newUserID returns user_ followed by nine random base36 characters and the
// creation time in base36 milliseconds.
func newUserID(now time.Time) (string, error) {
	var sb strings.Builder
	sb.WriteString("user_")
	size := big.NewInt(int64(len(userIDAlphabet)))
	for i := 0; i < userIDLength; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generate user id: %w", err)
		}
		sb.WriteByte(userIDAlphabet[n.Int64()])
	}
	sb.WriteString(strconv.FormatInt(now.UnixMilli(), 36))
	return sb.String(), nil
}

// MarkVoted records the option chosen in a poll.
func (s *LocalState) MarkVoted(pollID, optionID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(votesBucket)).Put([]byte(pollID), []byte(optionID))
	})
}

func (s *LocalState) VotedOption(pollID string) (string, bool, error) {
	var (
		optionID string
		found    bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		if value := tx.Bucket([]byte(votesBucket)).Get([]byte(pollID)); value != nil {
			optionID = string(value)
			found = true
		}
		return nil
	})
	return optionID, found, err
}

// HasVoted is true when this installation marked the poll or when the
// poll's identity ledger contains our user id.
func (s *LocalState) HasVoted(poll *domain.Poll) (bool, error) {
	_, marked, err := s.VotedOption(poll.ID.String())
	if err != nil {
		return false, err
	}
	if marked {
		return true, nil
	}

	userID, err := s.UserID()
	if err != nil {
		return false, err
	}
	return slices.Contains(poll.VotedUserIDs, userID), nil
}
