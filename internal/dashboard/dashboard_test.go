package dashboard

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"chatdesk-backend/internal/libraries"
	"chatdesk-backend/internal/models"
	"chatdesk-backend/internal/repo"
	"chatdesk-backend/internal/repo/repotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketDaysZeroFilled(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 3, 10, 15, 30, 0, 0, loc)

	points := Bucket([]time.Time{
		time.Date(2025, 3, 10, 1, 0, 0, 0, loc),
		time.Date(2025, 3, 10, 23, 59, 0, 0, loc),
		time.Date(2025, 3, 4, 0, 0, 0, 0, loc),
		time.Date(2025, 3, 3, 23, 59, 59, 0, loc), // before the window
		time.Date(2025, 3, 11, 0, 0, 0, 0, loc),   // after the window
	}, ByDay, now, loc)

	require.Len(t, points, 7)
	assert.Equal(t, "2025-03-04", points[0].Name)
	assert.Equal(t, "2025-03-10", points[6].Name)
	assert.Equal(t, 1, points[0].Value)
	assert.Equal(t, 2, points[6].Value)
	for _, p := range points[1:6] {
		assert.Equal(t, 0, p.Value)
	}
	for i := 1; i < len(points); i++ {
		assert.True(t, points[i-1].Start.Before(points[i].Start))
	}
}

func TestBucketHours(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 3, 10, 15, 30, 0, 0, loc)

	points := Bucket([]time.Time{
		time.Date(2025, 3, 9, 16, 0, 0, 0, loc),
		time.Date(2025, 3, 10, 15, 0, 0, 0, loc),
		time.Date(2025, 3, 10, 15, 10, 0, 0, loc),
		time.Date(2025, 3, 9, 15, 59, 0, 0, loc), // too old
	}, ByHour, now, loc)

	require.Len(t, points, 24)
	assert.Equal(t, "16:00", points[0].Name)
	assert.Equal(t, "15:00", points[23].Name)
	assert.Equal(t, 1, points[0].Value)
	assert.Equal(t, 2, points[23].Value)
}

func TestBucketEmpty(t *testing.T) {
	points := Bucket(nil, ByHour, time.Now(), nil)
	require.Len(t, points, 24)
	for _, p := range points {
		assert.Zero(t, p.Value)
	}
}

func TestServiceStatsAndCharts(t *testing.T) {
	db := repotest.OpenDB(t)
	profiles := repo.NewProfileRepository(db, nil)
	chats := repo.NewChatRepository(db, nil)
	messages := repo.NewMessageRepository(db, nil)

	alice := &models.Profile{Email: "alice@example.com", FullName: "Alice"}
	bob := &models.Profile{Email: "bob@example.com", FullName: "Bob"}
	require.NoError(t, profiles.CreateProfile(alice))
	require.NoError(t, profiles.CreateProfile(bob))

	chat := &models.Chat{UserID: alice.ID}
	require.NoError(t, chats.CreateChat(chat))
	require.NoError(t, chats.CreateChat(&models.Chat{UserID: bob.ID}))
	require.NoError(t, messages.CreateMessage(&models.Message{ChatID: chat.ID, Content: "hi"}))
	require.NoError(t, messages.CreateMessage(&models.Message{ChatID: chat.ID, Content: "hello", IsAI: true}))

	svc := NewService(repo.NewStatsRepository(db), time.Local)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(2), stats.TotalChats)
	assert.Equal(t, int64(2), stats.TotalMessages)
	assert.Equal(t, int64(1), stats.ActiveUsers)

	charts, err := svc.Charts(context.Background())
	require.NoError(t, err)
	require.Len(t, charts.MessagesByDay, 7)
	require.Len(t, charts.UsersByDay, 7)
	require.Len(t, charts.ChatsByHour, 24)
	assert.Equal(t, 2, charts.MessagesByDay[6].Value)
	assert.Equal(t, 2, charts.UsersByDay[6].Value)
	assert.Equal(t, 2, charts.ChatsByHour[23].Value)
}

func TestRefresherCoalescesBursts(t *testing.T) {
	broker := libraries.NewBroker()
	defer broker.Close()

	r := NewRefresher(nil, broker, time.Hour)
	r.coalesce = 50 * time.Millisecond

	var calls int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Watch(ctx, func() { atomic.AddInt32(&calls, 1) })
		close(done)
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return broker.Len() == len(watchedTables) }, time.Second, 5*time.Millisecond)

	for i := 0; i < 20; i++ {
		broker.Publish(libraries.ChangeEvent{Table: libraries.TableMessages, Type: libraries.EventInsert, New: []byte(`{"id":"x"}`)})
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	// settings are not watched
	broker.Publish(libraries.ChangeEvent{Table: libraries.TableSettings, Type: libraries.EventInsert, New: []byte(`{}`)})
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	cancel()
	<-done
	assert.Equal(t, 0, broker.Len())
}

func TestRefresherFallbackInterval(t *testing.T) {
	broker := libraries.NewBroker()
	defer broker.Close()

	r := NewRefresher(nil, broker, 20*time.Millisecond)
	var calls int32
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	r.Watch(ctx, func() { atomic.AddInt32(&calls, 1) })

	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(3))
}
