// Package keylock 提供按键加锁的互斥量集合，用于给每个聚合（下注、用户）一个单一写入者。
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Map 为任意字符串键分配独立的互斥锁，不再使用的锁会被回收。
// 零值可直接使用。
type Map struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// Lock 锁定指定键，返回对应的解锁函数。
func (m *Map) Lock(key string) (unlock func()) {
	m.mu.Lock()
	if m.entries == nil {
		m.entries = make(map[string]*entry)
	}
	e, ok := m.entries[key]
	if !ok {
		e = &entry{}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			m.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(m.entries, key)
			}
			m.mu.Unlock()
		})
	}
}

// Len 返回当前持有或等待中的键数量
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
