package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"rollcall/internal/daemon"
	"rollcall/internal/logging"
	"rollcall/internal/notifications"
	"rollcall/internal/store"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, st *store.Store, notifier notifications.Service, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if st == nil {
		return nil, errors.New("ipc server requires store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.Noop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, store: st, notifier: notifier, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Rollcall", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"))
	}
}

type service struct {
	daemon   *daemon.Daemon
	store    *store.Store
	notifier notifications.Service
	logger   *slog.Logger
	ctx      context.Context
}

const rpcTimeout = 5 * time.Second

func (s *service) callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, rpcTimeout)
}

// Status reports daemon state plus a roster and ledger summary.
func (s *service) Status(req StatusRequest, resp *StatusResponse) error {
	ctx, cancel := s.callCtx()
	defer cancel()

	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = os.Getpid()
	resp.DatabasePath = status.DatabasePath
	resp.LockFilePath = status.LockFilePath

	students, err := s.store.ListPersons(ctx, store.CategoryStudent)
	if err != nil {
		return err
	}
	faculty, err := s.store.ListPersons(ctx, store.CategoryFaculty)
	if err != nil {
		return err
	}
	resp.RosterStudents = len(students)
	resp.RosterFaculty = len(faculty)

	records, err := s.store.AttendanceForDay(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	resp.TodayRecords = len(records)
	return nil
}

// AttendanceToday returns today's ledger entries with names resolved.
func (s *service) AttendanceToday(req AttendanceTodayRequest, resp *AttendanceTodayResponse) error {
	ctx, cancel := s.callCtx()
	defer cancel()

	day := time.Now().UTC()
	records, err := s.store.AttendanceForDay(ctx, day)
	if err != nil {
		return err
	}

	resp.Day = day.Format("2006-01-02")
	resp.Entries = make([]AttendanceEntry, 0, len(records))
	names := map[string]string{}
	for _, rec := range records {
		name, ok := names[rec.PersonID]
		if !ok {
			if person, err := s.store.GetPerson(ctx, rec.PersonID); err == nil {
				name = person.Name
			}
			names[rec.PersonID] = name
		}
		resp.Entries = append(resp.Entries, AttendanceEntry{
			PersonID:   rec.PersonID,
			Name:       name,
			Category:   string(rec.Category),
			RecordedAt: rec.RecordedAt,
		})
	}
	return nil
}

// TestNotification pushes a test message through the configured notifiers.
func (s *service) TestNotification(req TestNotificationRequest, resp *TestNotificationResponse) error {
	ctx, cancel := s.callCtx()
	defer cancel()

	if err := s.notifier.TestNotification(ctx); err != nil {
		resp.Sent = false
		resp.Message = err.Error()
		return nil
	}
	resp.Sent = true
	resp.Message = "test notification sent"
	return nil
}
