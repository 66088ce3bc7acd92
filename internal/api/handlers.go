package api

import (
	"github.com/gofiber/fiber/v2"

	"enzyflow/internal/kinetics"
	"enzyflow/pkg/enzyflow"
)

func parse(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	return nil
}

func (s *Server) simulateSingle(c *fiber.Ctx) error {
	var req kinetics.SingleRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	trace, err := s.client.SimulateSingle(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(trace)
}

func (s *Server) simulateCascade(c *fiber.Ctx) error {
	var req kinetics.CascadeRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	trace, err := s.client.SimulateCascade(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(trace)
}

type sequenceRequest struct {
	Sequence string `json:"sequence"`
	Mutation string `json:"mutation,omitempty"`
	Seed     int64  `json:"seed,omitempty"`
}

func (s *Server) oracle(c *fiber.Ctx) error {
	var req sequenceRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if req.Sequence == "" {
		return fiber.NewError(fiber.StatusBadRequest, "sequence is required")
	}
	return c.JSON(s.client.OracleGroundTruth(req.Sequence))
}

func (s *Server) proposeMutation(c *fiber.Ctx) error {
	var req sequenceRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	res, err := s.client.ProposeMutation(req.Sequence, req.Seed)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (s *Server) applyMutation(c *fiber.Ctx) error {
	var req sequenceRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	mutant, err := s.client.ApplyMutation(req.Sequence, req.Mutation)
	if err != nil {
		return err
	}
	return c.JSON(enzyflow.MutationResult{Sequence: mutant, Mutation: req.Mutation})
}

func (s *Server) runDesign(c *fiber.Ctx) error {
	var req enzyflow.DesignRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	summary, err := s.client.RunActiveLearning(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(summary)
}

func (s *Server) listRuns(c *fiber.Ctx) error {
	runs, err := s.client.DesignRuns(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"runs": runs})
}

func (s *Server) getRun(c *fiber.Ctx) error {
	history, lineage, err := s.client.DesignHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"history": history, "lineage": lineage})
}

func (s *Server) optimize(c *fiber.Ctx) error {
	var req enzyflow.OptimizeRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	proposal, err := s.client.ProposeOptimization(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(proposal)
}

func (s *Server) benchmark(c *fiber.Ctx) error {
	var req enzyflow.BenchmarkRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	res, err := s.client.Benchmark(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (s *Server) screenPlate(c *fiber.Ctx) error {
	size := c.QueryInt("size", 96)
	seed := int64(c.QueryInt("seed", 0))
	plate, err := s.client.ScreenPlate(c.UserContext(), size, seed)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"plate": plate})
}
