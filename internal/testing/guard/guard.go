package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("DANIRY_TEST_MODE") == "" {
			_ = os.Setenv("DANIRY_TEST_MODE", "1")
		}
	})
}
