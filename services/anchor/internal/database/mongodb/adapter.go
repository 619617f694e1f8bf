package mongodb

import (
	"github.com/redbco/redb-docstore/pkg/anchor/adapter"
)

const (
	// AdapterName is the registry name of the MongoDB adapter.
	AdapterName = "mongodb"

	// GridFSBucketAdapterName is the registry name of the GridFS bucket adapter.
	GridFSBucketAdapterName = "mongodb-gridfs-bucket"
)

// Driver builds MongoDB bindings.
type Driver struct{}

// NewDriver creates the MongoDB driver.
func NewDriver() *Driver {
	return &Driver{}
}

// Name returns the registry name.
func (d *Driver) Name() string {
	return AdapterName
}

// NewBinding returns an unconnected MongoDB binding.
func (d *Driver) NewBinding(cfg adapter.Config) (adapter.Binding, error) {
	return NewBinding(cfg), nil
}

// GridFSBucketDriver builds bindings exposing a GridFS bucket as their library.
type GridFSBucketDriver struct {
	bucketName string
}

// NewGridFSBucketDriver creates the GridFS bucket driver. An empty bucket
// name selects the driver default ("fs").
func NewGridFSBucketDriver(bucketName string) *GridFSBucketDriver {
	return &GridFSBucketDriver{bucketName: bucketName}
}

// Name returns the registry name.
func (d *GridFSBucketDriver) Name() string {
	return GridFSBucketAdapterName
}

// NewBinding returns an unconnected GridFS bucket binding.
func (d *GridFSBucketDriver) NewBinding(cfg adapter.Config) (adapter.Binding, error) {
	return NewGridFSBucketBinding(cfg, d.bucketName), nil
}

// Drivers returns every driver of this package.
func Drivers() []adapter.Driver {
	return []adapter.Driver{
		NewDriver(),
		NewGridFSBucketDriver(""),
	}
}

// DriverNames returns the registry names of Drivers.
func DriverNames() []string {
	return []string{AdapterName, GridFSBucketAdapterName}
}

var (
	_ adapter.Driver = (*Driver)(nil)
	_ adapter.Driver = (*GridFSBucketDriver)(nil)
)
