package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/alice-run3/ao2d_go/pkg/esd"
)

type WorkerData struct {
	Seq  int
	Line int
	Data []byte
}

type WorkerResult struct {
	Seq   int
	Event *esd.Event
	Err   error
}

func worker(ctx context.Context, id int, jobs <-chan WorkerData, results chan<- WorkerResult) {
	for job := range jobs {
		result := decodeJob(id, job)
		select {
		case results <- result:
		case <-ctx.Done():
			return
		}
	}
}

func decodeJob(id int, job WorkerData) (result WorkerResult) {
	result.Seq = job.Seq
	defer func() {
		if r := recover(); r != nil {
			result.Event = nil
			result.Err = fmt.Errorf("worker %d recovered from panic on line %d: %v", id, job.Line, r)
		}
	}()
	event, err := esd.DecodeEvent(job.Data)
	if err != nil {
		result.Err = fmt.Errorf("line %d: %w", job.Line, err)
		return result
	}
	result.Event = event
	return result
}

// sendEventsToWorkers feeds the workers until the input ends. A read error
// is delivered in sequence, after the events read before it.
func sendEventsToWorkers(ctx context.Context, fileReader *FileReader, jobs chan<- WorkerData, results chan<- WorkerResult) {
	defer close(jobs)
	for seq := 0; ; seq++ {
		raw, line, err := fileReader.getNextEvent()
		if err == io.EOF {
			return
		}
		if err != nil {
			select {
			case results <- WorkerResult{Seq: seq, Err: err}:
			case <-ctx.Done():
			}
			return
		}
		select {
		case jobs <- WorkerData{Seq: seq, Line: line, Data: raw}:
		case <-ctx.Done():
			return
		}
	}
}

// OrderedSource decodes events with a pool of workers and returns them in
// file order.
type OrderedSource struct {
	results <-chan WorkerResult
	pending map[int]WorkerResult
	next    int
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func StartDecoding(ctx context.Context, fileReader *FileReader, numWorkers int) *OrderedSource {
	ctx, cancel := context.WithCancel(ctx)
	jobs := make(chan WorkerData, numWorkers)
	results := make(chan WorkerResult, 2*numWorkers)

	src := &OrderedSource{
		results: results,
		pending: make(map[int]WorkerResult),
		cancel:  cancel,
	}

	var workers sync.WaitGroup
	for w := 1; w <= numWorkers; w++ {
		workers.Add(1)
		go func(id int) {
			defer workers.Done()
			worker(ctx, id, jobs, results)
		}(w)
	}
	// the sender may also write a read error to results
	workers.Add(1)
	go func() {
		defer workers.Done()
		sendEventsToWorkers(ctx, fileReader, jobs, results)
	}()

	src.wg.Add(1)
	go func() {
		defer src.wg.Done()
		workers.Wait()
		close(results)
	}()
	return src
}

// Next returns the next event in file order and io.EOF after the last one.
func (s *OrderedSource) Next() (*esd.Event, error) {
	for {
		if r, ok := s.pending[s.next]; ok {
			delete(s.pending, s.next)
			s.next++
			return r.Event, r.Err
		}
		r, ok := <-s.results
		if !ok {
			if len(s.pending) > 0 {
				return nil, fmt.Errorf("event %d missing from decoded results", s.next)
			}
			return nil, io.EOF
		}
		s.pending[r.Seq] = r
	}
}

// Close stops the workers and waits for them to exit.
func (s *OrderedSource) Close() {
	s.cancel()
	for range s.results {
	}
	s.wg.Wait()
}
