package camera

import (
	"fmt"
	"sort"
)

// SensorCreator はセンサー作成関数の型
type SensorCreator func(cfg Config) (Sensor, error)

// SensorFactory は種類名からセンサーを作成する
type SensorFactory struct {
	creators map[string]SensorCreator
}

// NewSensorFactory は標準のセンサーを登録済みのファクトリーを作成する
func NewSensorFactory() *SensorFactory {
	factory := &SensorFactory{
		creators: make(map[string]SensorCreator),
	}

	factory.Register("v4l2", func(cfg Config) (Sensor, error) {
		return NewV4L2Sensor(cfg.Device), nil
	})
	factory.Register("pattern", func(Config) (Sensor, error) {
		return NewPatternSensor(), nil
	})

	return factory
}

// Register はセンサー作成関数を登録する
func (f *SensorFactory) Register(kind string, creator SensorCreator) {
	f.creators[kind] = creator
}

// Create は設定のSensorに対応するセンサーを作成する
func (f *SensorFactory) Create(cfg Config) (Sensor, error) {
	creator, exists := f.creators[cfg.Sensor]
	if !exists {
		return nil, fmt.Errorf("サポートされていないセンサー: %s", cfg.Sensor)
	}
	return creator(cfg)
}

// SupportedTypes は登録済みのセンサー種別を返す
func (f *SensorFactory) SupportedTypes() []string {
	types := make([]string, 0, len(f.creators))
	for kind := range f.creators {
		types = append(types, kind)
	}
	sort.Strings(types)
	return types
}
