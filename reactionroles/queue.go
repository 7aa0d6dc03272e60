package reactionroles

import (
	"sync"

	"github.com/sirupsen/logrus"
)

//serialQueue runs the jobs of each key one after another in submission order. Different keys run in parallel and a
//key's goroutine exits once its queue drains.
type serialQueue struct {
	mu      sync.Mutex
	pending map[string][]func()
	wg      sync.WaitGroup
}

func newSerialQueue() *serialQueue {
	return &serialQueue{pending: map[string][]func(){}}
}

func (q *serialQueue) enqueue(key string, job func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs, running := q.pending[key]
	q.pending[key] = append(jobs, job)
	if running {
		return
	}
	q.wg.Add(1)
	go q.drain(key)
}

func (q *serialQueue) drain(key string) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		jobs := q.pending[key]
		if len(jobs) == 0 {
			delete(q.pending, key)
			q.mu.Unlock()
			return
		}
		job := jobs[0]
		q.pending[key] = jobs[1:]
		q.mu.Unlock()
		runJob(key, job)
	}
}

func runJob(key string, job func()) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("Reaction job for %v panicked: %v", key, r)
		}
	}()
	job()
}

//wait blocks until every queued job has finished
func (q *serialQueue) wait() {
	q.wg.Wait()
}
