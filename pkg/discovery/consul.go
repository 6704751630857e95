package discovery

import (
	"fmt"
	"log"

	"github.com/hashicorp/consul/api"
)

// ConsulConfig Consul 连接配置
type ConsulConfig struct {
	Address string // Consul 地址，例如 "localhost:8500"
	Scheme  string // http 或 https
	Token   string // ACL Token，可选
}

// ConsulRegistry Consul 服务注册客户端
// 看板服务只注册自己，不做客户端发现。
type ConsulRegistry struct {
	client *api.Client
}

// ServiceRegistration 服务注册信息
type ServiceRegistration struct {
	ID      string // 服务实例 ID，全局唯一
	Name    string
	Address string
	Port    int
	Tags    []string
	Meta    map[string]string

	// HTTP 健康检查，Path 为空时不注册检查
	HealthCheckPath                string
	HealthCheckInterval            string // 例如 "10s"
	HealthCheckTimeout             string // 例如 "5s"
	DeregisterCriticalServiceAfter string // 例如 "1m"
}

// NewConsulRegistry 创建注册客户端
func NewConsulRegistry(config *ConsulConfig) (*ConsulRegistry, error) {
	consulConfig := api.DefaultConfig()
	if config != nil {
		if config.Address != "" {
			consulConfig.Address = config.Address
		}
		if config.Scheme != "" {
			consulConfig.Scheme = config.Scheme
		}
		if config.Token != "" {
			consulConfig.Token = config.Token
		}
	}

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}

	return &ConsulRegistry{client: client}, nil
}

// Register 注册服务实例
func (r *ConsulRegistry) Register(reg *ServiceRegistration) error {
	registration := &api.AgentServiceRegistration{
		ID:      reg.ID,
		Name:    reg.Name,
		Address: reg.Address,
		Port:    reg.Port,
		Tags:    reg.Tags,
		Meta:    reg.Meta,
	}

	if reg.HealthCheckPath != "" {
		registration.Check = &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d%s", reg.Address, reg.Port, reg.HealthCheckPath),
			Interval:                       reg.HealthCheckInterval,
			Timeout:                        reg.HealthCheckTimeout,
			DeregisterCriticalServiceAfter: reg.DeregisterCriticalServiceAfter,
		}
	}

	if err := r.client.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("register service %s: %w", reg.Name, err)
	}

	log.Printf("[Consul] Registered service: %s (%s:%d)", reg.Name, reg.Address, reg.Port)
	return nil
}

// Deregister 注销服务实例
func (r *ConsulRegistry) Deregister(serviceID string) error {
	if err := r.client.Agent().ServiceDeregister(serviceID); err != nil {
		return fmt.Errorf("deregister service %s: %w", serviceID, err)
	}

	log.Printf("[Consul] Deregistered service: %s", serviceID)
	return nil
}
