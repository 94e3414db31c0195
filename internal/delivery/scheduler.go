package delivery

import (
	"container/heap"
	"sync"
	"time"

	"meta_publisher/internal/logger"
)

// timerTask là một timer đang chờ fire.
type timerTask struct {
	id     string
	fireAt int64 // Epoch ms
	fn     func()
	index  int // Vị trí trong heap, maintain bởi heap.Interface
}

// taskHeap là min-heap theo fireAt.
type taskHeap []*timerTask

func (h taskHeap) Len() int           { return len(h) }
func (h taskHeap) Less(i, j int) bool { return h[i].fireAt < h[j].fireAt }
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *taskHeap) Push(x interface{}) {
	task := x.(*timerTask)
	task.index = len(*h)
	*h = append(*h, task)
}
func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	task.index = -1
	*h = old[:n-1]
	return task
}

// Scheduler là timer service duy nhất của process: một goroutine, một min-heap.
// Mỗi scheduled delivery / approval-prefetch sở hữu một task theo id;
// schedule lại cùng id thay thế task cũ. Callback chạy trên goroutine riêng
// nên một callback chậm không chặn các timer khác.
type Scheduler struct {
	mu      sync.Mutex
	tasks   taskHeap
	byID    map[string]*timerTask
	wake    chan struct{}
	stopCh  chan struct{}
	stopped bool
	wg      sync.WaitGroup
}

// NewScheduler tạo và start scheduler.
func NewScheduler() *Scheduler {
	s := &Scheduler{
		byID:   make(map[string]*timerTask),
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

// Schedule đăng ký task fire tại fireAtMs (epoch ms). Task cùng id đang chờ
// bị thay thế. fireAt trong quá khứ fire ngay ở vòng loop kế tiếp.
func (s *Scheduler) Schedule(id string, fireAtMs int64, fn func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if existing, ok := s.byID[id]; ok {
		heap.Remove(&s.tasks, existing.index)
	}
	task := &timerTask{id: id, fireAt: fireAtMs, fn: fn}
	heap.Push(&s.tasks, task)
	s.byID[id] = task
	s.mu.Unlock()

	s.notify()
}

// Cancel hủy task theo id. Idempotent: id không tồn tại là no-op.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	if task, ok := s.byID[id]; ok {
		heap.Remove(&s.tasks, task.index)
		delete(s.byID, id)
	}
	s.mu.Unlock()

	s.notify()
}

// Pending trả về số task đang chờ.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Stop dừng scheduler. Task chưa fire bị bỏ (state authoritative nằm trong
// cache, restart sẽ recreate timers qua loadScheduledDeliveries).
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop() {
	defer s.wg.Done()
	log := logger.GetAppLogger()

	for {
		now := time.Now().UnixMilli()

		// Fire mọi task đã tới hạn
		s.mu.Lock()
		var due []*timerTask
		for s.tasks.Len() > 0 && s.tasks[0].fireAt <= now {
			task := heap.Pop(&s.tasks).(*timerTask)
			delete(s.byID, task.id)
			due = append(due, task)
		}
		// Thời gian chờ tới task kế tiếp
		var wait time.Duration = time.Minute
		if s.tasks.Len() > 0 {
			wait = time.Duration(s.tasks[0].fireAt-now) * time.Millisecond
			if wait < 0 {
				wait = 0
			}
		}
		s.mu.Unlock()

		for _, task := range due {
			go func(t *timerTask) {
				defer func() {
					if r := recover(); r != nil {
						log.WithFields(map[string]interface{}{
							"taskId": t.id,
							"panic":  r,
						}).Error("⏰ [SCHEDULER] Panic trong timer callback")
					}
				}()
				t.fn()
			}(task)
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-s.wake:
			timer.Stop()
		case <-s.stopCh:
			timer.Stop()
			return
		}
	}
}
