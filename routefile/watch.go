package routefile

import (
	"bytes"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zalando/traject/converter"
	"github.com/zalando/traject/routing"
)

// WatchClient polls a route file, and rebuilds the application tree when
// the content changes. It keeps serving the last valid tree when the file
// becomes invalid or is removed. Use the Watch function to initialize
// instances of it.
type WatchClient struct {
	fileName string
	registry *converter.Registry
	interval time.Duration
	onChange func(*routing.App)
	content  []byte
	quit     chan struct{}
	done     chan struct{}
}

// Watch creates a route file watcher. The current content is loaded
// synchronously and passed to onChange before the polling starts, then
// onChange is called from the polling goroutine for the subsequent valid
// changes. Watch doesn't follow file system nodes, it always reads from the
// file identified by the initially provided file name.
func Watch(fileName string, registry *converter.Registry, interval time.Duration, onChange func(*routing.App)) (*WatchClient, *routing.App, error) {
	c := &WatchClient{
		fileName: fileName,
		registry: registry,
		interval: interval,
		onChange: onChange,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	content, err := os.ReadFile(fileName)
	if err != nil {
		return nil, nil, err
	}

	app, err := c.build(content)
	if err != nil {
		return nil, nil, err
	}

	c.content = content
	onChange(app)
	go c.watch()
	return c, app, nil
}

func (c *WatchClient) build(content []byte) (*routing.App, error) {
	def, err := Parse(content)
	if err != nil {
		return nil, err
	}

	return Build(def, c.registry)
}

func (c *WatchClient) poll() {
	content, err := os.ReadFile(c.fileName)
	if err != nil {
		log.Errorf("failed to read route file %s: %v", c.fileName, err)
		return
	}

	if bytes.Equal(content, c.content) {
		return
	}

	app, err := c.build(content)
	if err != nil {
		log.Errorf("invalid route file %s, keeping the previous routes: %v", c.fileName, err)
		c.content = content
		return
	}

	c.content = content
	log.Infof("route file changed: %s", c.fileName)
	c.onChange(app)
}

func (c *WatchClient) watch() {
	defer close(c.done)

	t := time.NewTicker(c.interval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			c.poll()
		case <-c.quit:
			return
		}
	}
}

// Close stops watching the file. It waits for the polling goroutine to
// exit.
func (c *WatchClient) Close() {
	close(c.quit)
	<-c.done
}
