package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore(t *testing.T) {
	t.Parallel()

	t.Run("Prependは先頭に追加し同じIDを置き換えること", func(t *testing.T) {
		t.Parallel()

		s := NewStore()
		s.Prepend(Notification{ID: "A", Title: "a"})
		s.Prepend(Notification{ID: "B"})
		s.Prepend(Notification{ID: "A", Title: "a2"})

		assert.Equal(t, []string{"A", "B"}, s.IDs())
		n, ok := s.Get("A")
		assert.True(t, ok)
		assert.Equal(t, "a2", n.Title)
	})

	t.Run("未読数を数えること", func(t *testing.T) {
		t.Parallel()

		s := NewStore()
		s.Replace([]Notification{{ID: "A"}, {ID: "B", Read: true}, {ID: "C"}})
		assert.Equal(t, 2, s.UnreadCount())

		s.UpdateAll(func(n *Notification) { n.Read = true })
		assert.Equal(t, 0, s.UnreadCount())
	})

	t.Run("RemoveとUpdateは存在しないIDでfalseを返すこと", func(t *testing.T) {
		t.Parallel()

		s := NewStore()
		s.Replace([]Notification{{ID: "A"}, {ID: "B"}, {ID: "C"}})

		assert.True(t, s.Remove("B"))
		assert.False(t, s.Remove("B"))
		assert.False(t, s.Update("B", func(*Notification) {}))
		assert.Equal(t, []string{"A", "C"}, s.IDs())
	})

	t.Run("Snapshotは内部状態と共有しないこと", func(t *testing.T) {
		t.Parallel()

		s := NewStore()
		s.Replace([]Notification{{ID: "A", Data: map[string]any{"k": "v"}}})

		snap := s.Snapshot()
		snap[0].Read = true
		snap[0].Data["k"] = "changed"

		n, _ := s.Get("A")
		assert.False(t, n.Read)
		assert.Equal(t, "v", n.Data["k"])
	})

	t.Run("連続した変更は1つの合図にまとめられること", func(t *testing.T) {
		t.Parallel()

		s := NewStore()
		s.Prepend(Notification{ID: "A"})
		s.Prepend(Notification{ID: "B"})
		s.Clear()

		select {
		case <-s.Changes():
		default:
			t.Fatal("変更の合図が届いていない")
		}
		select {
		case <-s.Changes():
			t.Fatal("合図がまとめられていない")
		default:
		}
		assert.Equal(t, 0, s.Len())
	})
}
