package network

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/models/service"
	"github.com/go-redis/redis/v7"
	"github.com/samber/lo"
)

// RedisClient keeps parse results between the parse stage and the
// storage stage. Each operation has one hash, keyed by operation id,
// with a field per unit and per group.
type RedisClient struct {
	client *redis.Client
}

func NewRedisClient(address, password string, db int) *RedisClient {
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr:     address,
			Password: password,
			DB:       db,
		}),
	}
}

func (c *RedisClient) Ping() (string, error) {
	return c.client.Ping().Result()
}

// ParseResultSave writes the header, every unit, every group and the
// unit order of result in one transaction.
func (c *RedisClient) ParseResultSave(result *service.ParseResult) error {
	key := result.Header.OperationID
	fields := make(map[string]interface{}, len(result.Units)+len(result.Groups)+2)
	header, err := json.Marshal(result.Header)
	if err != nil {
		return err
	}
	fields[constants.RedisFieldHeader] = string(header)
	order := make([]string, len(result.Units))
	for i, unit := range result.Units {
		data, err := unit.ToJson()
		if err != nil {
			return err
		}
		fields[constants.RedisPrefixUnit+unit.XMLID] = data
		order[i] = unit.XMLID
	}
	for _, group := range result.Groups {
		data, err := json.Marshal(group)
		if err != nil {
			return err
		}
		fields[constants.RedisPrefixGroup+group.XMLID] = string(data)
	}
	orderJSON, _ := json.Marshal(order)
	fields[constants.RedisFieldOrder] = string(orderJSON)
	if result.ManagementMetadata != nil {
		data, err := json.Marshal(result.ManagementMetadata)
		if err != nil {
			return err
		}
		fields[constants.RedisFieldMgmt] = string(data)
	}

	// Units and groups of an earlier attempt are replaced, the
	// operation result is kept.
	existing, err := c.client.HKeys(key).Result()
	if err != nil {
		return fmt.Errorf("ParseResultSave (%s): %s", key, err.Error())
	}
	stale := lo.Filter(existing, func(field string, _ int) bool {
		_, replaced := fields[field]
		return !replaced && field != constants.RedisFieldResult
	})
	pipe := c.client.TxPipeline()
	if len(stale) > 0 {
		pipe.HDel(key, stale...)
	}
	pipe.HSet(key, fields)
	if _, err = pipe.Exec(); err != nil {
		return fmt.Errorf("ParseResultSave (%s): %s", key, err.Error())
	}
	return nil
}

// ParseResultGet rebuilds the parse result of operationID, with units
// in their original order.
func (c *RedisClient) ParseResultGet(operationID string) (*service.ParseResult, error) {
	data, err := c.client.HGetAll(operationID).Result()
	if err != nil {
		return nil, fmt.Errorf("ParseResultGet (%s): %s", operationID, err.Error())
	}
	if len(data) == 0 || data[constants.RedisFieldHeader] == "" {
		return nil, fmt.Errorf("ParseResultGet (%s): no parse result", operationID)
	}
	result := &service.ParseResult{
		Groups: make([]*service.DataObjectGroup, 0),
		Units:  make([]*service.ArchiveUnit, 0),
	}
	if err := json.Unmarshal([]byte(data[constants.RedisFieldHeader]), &result.Header); err != nil {
		return nil, err
	}
	if md := data[constants.RedisFieldMgmt]; md != "" {
		if err := json.Unmarshal([]byte(md), &result.ManagementMetadata); err != nil {
			return nil, err
		}
	}
	var order []string
	if err := json.Unmarshal([]byte(data[constants.RedisFieldOrder]), &order); err != nil {
		return nil, fmt.Errorf("ParseResultGet (%s): bad unit order: %s", operationID, err.Error())
	}
	for _, xmlID := range order {
		unit, err := service.ArchiveUnitFromJson(data[constants.RedisPrefixUnit+xmlID])
		if err != nil {
			return nil, fmt.Errorf("ParseResultGet (%s, %s): %s", operationID, xmlID, err.Error())
		}
		result.Units = append(result.Units, unit)
	}
	for field, value := range data {
		if !strings.HasPrefix(field, constants.RedisPrefixGroup) {
			continue
		}
		group := &service.DataObjectGroup{}
		if err := json.Unmarshal([]byte(value), group); err != nil {
			return nil, fmt.Errorf("ParseResultGet (%s, %s): %s", operationID, field, err.Error())
		}
		result.Groups = append(result.Groups, group)
	}
	// Group ids follow creation order.
	sort.Slice(result.Groups, func(i, j int) bool {
		return result.Groups[i].ID < result.Groups[j].ID
	})
	return result, nil
}

// UnitGet returns one unit of a saved parse result.
func (c *RedisClient) UnitGet(operationID, xmlID string) (*service.ArchiveUnit, error) {
	data, err := c.client.HGet(operationID, constants.RedisPrefixUnit+xmlID).Result()
	if err != nil {
		return nil, fmt.Errorf("UnitGet (%s, %s): %s", operationID, xmlID, err.Error())
	}
	return service.ArchiveUnitFromJson(data)
}

// GroupGet returns one data object group of a saved parse result.
func (c *RedisClient) GroupGet(operationID, xmlID string) (*service.DataObjectGroup, error) {
	data, err := c.client.HGet(operationID, constants.RedisPrefixGroup+xmlID).Result()
	if err != nil {
		return nil, fmt.Errorf("GroupGet (%s, %s): %s", operationID, xmlID, err.Error())
	}
	group := &service.DataObjectGroup{}
	return group, json.Unmarshal([]byte(data), group)
}

// OperationResultGet returns the stored result of operationID.
func (c *RedisClient) OperationResultGet(operationID string) (*service.OperationResult, error) {
	data, err := c.client.HGet(operationID, constants.RedisFieldResult).Result()
	if err != nil {
		return nil, fmt.Errorf("OperationResultGet (%s): %s", operationID, err.Error())
	}
	return service.OperationResultFromJson(data)
}

func (c *RedisClient) OperationResultSave(result *service.OperationResult) error {
	data, err := result.ToJson()
	if err != nil {
		return err
	}
	_, err = c.client.HSet(result.OperationID, constants.RedisFieldResult, data).Result()
	return err
}

// ReserveIDs advances the shared unit, group and object id sequence by
// count and returns its new value. The caller owns the ids from
// value-count+1 through value.
func (c *RedisClient) ReserveIDs(count int64) (int64, error) {
	return c.client.IncrBy(constants.RedisKeyIDSequence, count).Result()
}

// OperationDelete removes everything stored for operationID.
func (c *RedisClient) OperationDelete(operationID string) error {
	_, err := c.client.Del(operationID).Result()
	return err
}
