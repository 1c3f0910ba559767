package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"creddit/internal/db"
	"creddit/internal/models"
	"creddit/internal/repository"
	"creddit/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type sentMail struct {
	to   string
	link string
}

type recordingMail struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMail) SendPasswordResetEmail(email, link string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: email, link: link})
}

func (m *recordingMail) last() (sentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMail{}, false
	}
	return m.sent[len(m.sent)-1], true
}

type testEnv struct {
	db       *gorm.DB
	mr       *miniredis.Miniredis
	log      *logrus.Logger
	logs     *test.Hook
	metrics  *Metrics
	cache    *RenderCache
	users    *repository.UserRepo
	postRepo *repository.PostRepo
	votes    *repository.VoteRepo
	ledger   *Ledger
	feed     *Feed
	posts    *PostService
	identity *Identity
	mail     *recordingMail
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	log, hook := test.NewNullLogger()
	gdb, err := db.Open("sqlite", ":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cache, err := utils.NewCache[string](100)
	require.NoError(t, err)

	env := &testEnv{
		db:       gdb,
		mr:       mr,
		log:      log,
		logs:     hook,
		metrics:  NewMetrics(prometheus.NewRegistry()),
		cache:    cache,
		users:    repository.NewUserRepo(gdb),
		postRepo: repository.NewPostRepo(gdb),
		votes:    repository.NewVoteRepo(gdb),
		mail:     &recordingMail{},
	}
	timeout := 5 * time.Second
	env.ledger = NewLedger(env.votes, timeout, env.metrics, log)
	env.feed = NewFeed(env.postRepo, env.ledger, timeout)
	env.posts = NewPostService(env.postRepo, env.ledger, cache, timeout, log)
	env.identity = NewIdentity(
		env.users,
		NewRedisSessionStore(rdb, 14*24*time.Hour),
		NewRedisResetTokens(rdb, 24*time.Hour),
		NewBcryptHasher(bcrypt.MinCost),
		env.mail,
		"http://localhost:3000/",
		timeout,
		log,
	)
	return env
}

func (e *testEnv) register(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := e.identity.Register(context.Background(), name, name+"@example.com", "password1")
	require.NoError(t, err)
	return u
}

// seedPosts creates n posts one second apart, oldest first.
func (e *testEnv) seedPosts(t *testing.T, author uint, n int) []*models.Post {
	t.Helper()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	posts := make([]*models.Post, n)
	for i := 0; i < n; i++ {
		p := &models.Post{
			AuthorID:  author,
			Title:     "post",
			Text:      "text",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, e.postRepo.Create(context.Background(), p))
		posts[i] = p
	}
	return posts
}

func (e *testEnv) points(t *testing.T, postID uint) int {
	t.Helper()
	var post models.Post
	require.NoError(t, e.db.First(&post, postID).Error)
	return post.Points
}
