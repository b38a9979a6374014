package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ageqc/qcpipeline/internal/qctypes"
	"github.com/ageqc/qcpipeline/internal/study"
)

var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Manage study configurations",
}

var studyNormativeDataset string
var studyCreatedBy string

var studyCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new study configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runStudyCreate,
}

var studyUpdateCmd = &cobra.Command{
	Use:   "update [name]",
	Short: "Update an existing study configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runStudyUpdate,
}

var studyDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a study configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runStudyDelete,
}

var studyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all study configurations",
	Args:  cobra.NoArgs,
	RunE:  runStudyList,
}

func init() {
	studyCreateCmd.Flags().StringVar(&studyNormativeDataset, "normative-dataset", "", "normative dataset name this study binds to")
	studyCreateCmd.Flags().StringVar(&studyCreatedBy, "created-by", "", "identity recorded as the creator")
	studyUpdateCmd.Flags().StringVar(&studyNormativeDataset, "normative-dataset", "", "normative dataset name this study binds to")

	studyCmd.AddCommand(studyCreateCmd, studyUpdateCmd, studyDeleteCmd, studyListCmd)
}

func runStudyCreate(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	s := study.New(store)
	err = s.Create(qctypes.StudyConfiguration{
		StudyName:        args[0],
		NormativeDataset: studyNormativeDataset,
		CreatedBy:        studyCreatedBy,
	})
	if err != nil {
		return err
	}
	successf("created study %s", args[0])
	return nil
}

func runStudyUpdate(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	s := study.New(store)
	existing, ok, err := s.Get(args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("study %q not found", args[0])
	}
	if studyNormativeDataset != "" {
		existing.NormativeDataset = studyNormativeDataset
	}
	if err := s.Update(existing); err != nil {
		return err
	}
	successf("updated study %s", args[0])
	return nil
}

func runStudyDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := study.New(store).Delete(args[0]); err != nil {
		return err
	}
	successf("deleted study %s", args[0])
	return nil
}

func runStudyList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	all, err := study.New(store).List()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		infof("no studies configured")
		return nil
	}
	for _, s := range all {
		infof("%s  normative=%s  age_groups=%d  thresholds=%d", s.StudyName, s.NormativeDataset, len(s.CustomAgeGroups), len(s.CustomThresholds))
	}
	return nil
}
