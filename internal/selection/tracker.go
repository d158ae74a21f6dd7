package selection

// Tracker набор выбранных ID объявлений для пакетной операции.
// Принадлежит одной сессии и не потокобезопасен.
type Tracker struct {
	order []int64
	set   map[int64]struct{}
}

// NewTracker создаёт пустой Tracker
func NewTracker() *Tracker {
	return &Tracker{set: make(map[int64]struct{})}
}

// Toggle добавляет ID, если его нет, и убирает, если он уже выбран
func (t *Tracker) Toggle(id int64) {
	if _, ok := t.set[id]; ok {
		t.remove(id)
		return
	}
	t.set[id] = struct{}{}
	t.order = append(t.order, id)
}

// Clear очищает выбор
func (t *Tracker) Clear() {
	t.order = nil
	t.set = make(map[int64]struct{})
}

// ToggleSelectAll очищает выбор, если он в точности совпадает с allIDs как множество,
// иначе заменяет выбор на allIDs
func (t *Tracker) ToggleSelectAll(allIDs []int64) {
	if t.equals(allIDs) {
		t.Clear()
		return
	}
	t.Clear()
	for _, id := range allIDs {
		if _, ok := t.set[id]; !ok {
			t.set[id] = struct{}{}
			t.order = append(t.order, id)
		}
	}
}

// Retain убирает из выбора ID, которых нет в текущем списке
func (t *Tracker) Retain(known []int64) {
	keep := make(map[int64]struct{}, len(known))
	for _, id := range known {
		keep[id] = struct{}{}
	}
	for _, id := range t.IDs() {
		if _, ok := keep[id]; !ok {
			t.remove(id)
		}
	}
}

// IDs возвращает выбранные ID в порядке добавления
func (t *Tracker) IDs() []int64 {
	ids := make([]int64, len(t.order))
	copy(ids, t.order)
	return ids
}

// Has сообщает, выбран ли ID
func (t *Tracker) Has(id int64) bool {
	_, ok := t.set[id]
	return ok
}

// Len возвращает количество выбранных ID
func (t *Tracker) Len() int {
	return len(t.order)
}

func (t *Tracker) remove(id int64) {
	delete(t.set, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}

func (t *Tracker) equals(ids []int64) bool {
	other := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		other[id] = struct{}{}
	}
	if len(other) != len(t.set) {
		return false
	}
	for id := range other {
		if _, ok := t.set[id]; !ok {
			return false
		}
	}
	return true
}
